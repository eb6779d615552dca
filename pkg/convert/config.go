package convert

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls a batch conversion run, loadable from YAML
type Config struct {
	Input struct {
		// Extensions lists recognized slice file suffixes (lowercase, with dot)
		Extensions []string `yaml:"extensions"`

		// SampleLimit bounds how many files are opened during series discovery
		SampleLimit int `yaml:"sampleLimit"`
	} `yaml:"input"`

	Output struct {
		// Dir receives the converted volumes and the batch report.
		// Empty means a nifti_output directory next to the input tree.
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	// Rules optionally replaces the built-in classification table
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is the YAML form of one classification rule
type RuleConfig struct {
	Type     string    `yaml:"type"`
	Keywords []string  `yaml:"keywords"`
	TERange  []float64 `yaml:"teRange"`
	TRRange  []float64 `yaml:"trRange"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Input.Extensions = append([]string(nil), DefaultExtensions...)
	cfg.Input.SampleLimit = DefaultSampleLimit
	return cfg
}

// LoadConfig loads configuration from a YAML file. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ClassifierRules materializes the classification table: configured
// rules when present, the built-in table otherwise.
func (c *Config) ClassifierRules() (Rules, error) {
	if len(c.Rules) == 0 {
		return DefaultRules(), nil
	}

	rules := make(Rules, 0, len(c.Rules))
	for _, rc := range c.Rules {
		if rc.Type == "" {
			return nil, fmt.Errorf("classification rule missing type")
		}
		if len(rc.TERange) != 2 || len(rc.TRRange) != 2 {
			return nil, fmt.Errorf("rule %s: teRange and trRange need exactly two values", rc.Type)
		}
		rules = append(rules, Rule{
			Type:     ScanType(rc.Type),
			Keywords: rc.Keywords,
			TEMin:    rc.TERange[0],
			TEMax:    rc.TERange[1],
			TRMin:    rc.TRRange[0],
			TRMax:    rc.TRRange[1],
		})
	}
	return rules, nil
}
