package convert

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// maxFilenameLength bounds generated output names, extension included
const maxFilenameLength = 200

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\-]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// SafeFilename sanitizes a string for use as a filename: illegal and
// non-printable characters removed, whitespace and underscore runs
// collapsed, truncated to maxLen with the extension preserved. The
// result is never empty; a timestamp-derived name substitutes when
// sanitization empties the input.
func SafeFilename(name string, maxLen int) string {
	name = invalidChars.ReplaceAllString(name, "_")

	var printable strings.Builder
	for _, r := range name {
		if unicode.IsPrint(r) {
			printable.WriteRune(r)
		}
	}
	name = printable.String()

	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")

	if len(name) > maxLen {
		ext := filepath.Ext(name)
		if len(ext) < maxLen-10 {
			base := truncateBytes(name[:len(name)-len(ext)], maxLen-len(ext))
			name = base + ext
		} else {
			name = truncateBytes(name, maxLen)
		}
	}

	name = strings.Trim(name, "._ ")
	if name == "" {
		name = "series_" + time.Now().Format("20060102_150405")
	}
	return name
}

// outputFilename builds the volume file name:
// {patient}_{scanType}_S{seriesNumber}_{description}.nii.gz
// with the patient id capped at 20 characters, the description at 30,
// and the whole name sanitized to the filename length limit.
func outputFilename(patientID string, scanType ScanType, seriesNumber int, description string) string {
	patientID = truncateRunes(patientID, 20)
	description = truncateRunes(description, 30)
	safePatient := SafeFilename(patientID, maxFilenameLength)
	safeDesc := SafeFilename(description, maxFilenameLength)

	base := fmt.Sprintf("%s_%s_S%d_%s", safePatient, scanType, seriesNumber, safeDesc)
	const ext = ".nii.gz"
	if len(base) > maxFilenameLength-len(ext) {
		base = strings.Trim(truncateBytes(base, maxFilenameLength-len(ext)), "._ ")
	}
	return base + ext
}

// truncateRunes caps s at n runes
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// truncateBytes caps s at n bytes without splitting a multi-byte rune
func truncateBytes(s string, n int) string {
	for len(s) > n {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
