package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultExtensions, cfg.Input.Extensions)
	assert.Equal(t, DefaultSampleLimit, cfg.Input.SampleLimit)
	assert.Empty(t, cfg.Output.Dir)
	assert.Empty(t, cfg.Rules)
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleLimit, cfg.Input.SampleLimit)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcm2nii.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  extensions: [".dcm"]
  sampleLimit: 50
output:
  dir: /tmp/out
rules:
  - type: T2
    keywords: ["t2", "tse"]
    teRange: [80, 150]
    trRange: [2000, 6000]
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".dcm"}, cfg.Input.Extensions)
	assert.Equal(t, 50, cfg.Input.SampleLimit)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)

	rules, err := cfg.ClassifierRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, ScanT2, rules[0].Type)
	assert.Equal(t, 80.0, rules[0].TEMin)
	assert.Equal(t, 6000.0, rules[0].TRMax)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: [not, a, mapping]"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestClassifierRules_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []RuleConfig{{Type: "", TERange: []float64{1, 2}, TRRange: []float64{1, 2}}}
	_, err := cfg.ClassifierRules()
	assert.Error(t, err)

	cfg.Rules = []RuleConfig{{Type: "T1", TERange: []float64{1}, TRRange: []float64{1, 2}}}
	_, err = cfg.ClassifierRules()
	assert.Error(t, err)

	cfg.Rules = nil
	rules, err := cfg.ClassifierRules()
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
