package convert

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "ax_t2_tse", "ax_t2_tse"},
		{"path separators", `head/neck\axial`, "head_neck_axial"},
		{"windows reserved", `t2:tse?*"<>`, "t2_tse"},
		{"whitespace collapsed", "ax   t2\t tse", "ax_t2_tse"},
		{"underscore runs", "a___b__c", "a_b_c"},
		{"leading trailing junk", "  _series_. ", "series"},
		{"hyphens replaced", "t1-weighted-post", "t1_weighted_post"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeFilename(tc.in, maxFilenameLength))
		})
	}
}

func TestSafeFilename_EmptyFallsBackToTimestamp(t *testing.T) {
	got := SafeFilename("???", maxFilenameLength)
	assert.True(t, strings.HasPrefix(got, "series_"), "got %q", got)
	assert.NotEqual(t, "series_", got)
}

func TestSafeFilename_TruncatesPreservingExtension(t *testing.T) {
	long := strings.Repeat("a", 300) + ".nii.gz"
	got := SafeFilename(long, 100)
	assert.LessOrEqual(t, len(got), 100)
	assert.True(t, strings.HasSuffix(got, ".gz"), "got %q", got)
}

func TestOutputFilename(t *testing.T) {
	got := outputFilename("PAT-001", ScanT2, 3, "ax t2 tse")
	assert.Equal(t, "PAT_001_T2_S3_ax_t2_tse.nii.gz", got)
}

func TestOutputFilename_CapsComponents(t *testing.T) {
	longID := strings.Repeat("p", 40)
	longDesc := strings.Repeat("d", 300)

	got := outputFilename(longID, ScanFLAIR, 12, longDesc)
	assert.LessOrEqual(t, len(got), maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".nii.gz"), "got %q", got)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("p", 20)+"_FLAIR_S12_"), "got %q", got)
	// Description capped at 30 characters
	assert.Contains(t, got, strings.Repeat("d", 30)+".nii.gz")
	assert.NotContains(t, got, strings.Repeat("d", 31))
}

func TestOutputFilename_MultiByteComponents(t *testing.T) {
	got := outputFilename(strings.Repeat("ü", 30), ScanT1, 1, strings.Repeat("ß", 40))
	assert.True(t, utf8.ValidString(got), "got %q", got)
	assert.Equal(t, strings.Repeat("ü", 20)+"_T1_S1_"+strings.Repeat("ß", 30)+".nii.gz", got)
}

func TestSafeFilename_MultiByteTruncation(t *testing.T) {
	got := SafeFilename(strings.Repeat("é", 80), 101)
	assert.True(t, utf8.ValidString(got), "got %q", got)
	assert.LessOrEqual(t, len(got), 101)
	assert.Equal(t, strings.Repeat("é", 50), got)
}

func TestOutputFilename_LongNameKeepsSuffix(t *testing.T) {
	// Components at their caps still produce a bounded, well-formed name
	got := outputFilename(strings.Repeat("x", 100), ScanT1CE, 9999, strings.Repeat("y", 100))
	assert.LessOrEqual(t, len(got), maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".nii.gz"))
	assert.Contains(t, got, "T1-CE")
}
