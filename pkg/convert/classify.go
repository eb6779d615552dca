package convert

import "strings"

// ScanType is the semantic acquisition label assigned to a series
type ScanType string

// Scan type vocabulary
const (
	ScanT1      ScanType = "T1"
	ScanT1CE    ScanType = "T1-CE"
	ScanT2      ScanType = "T2"
	ScanFLAIR   ScanType = "FLAIR"
	ScanDWI     ScanType = "DWI"
	ScanADC     ScanType = "ADC"
	ScanT1MPR   ScanType = "T1-MPR"
	ScanT2MPR   ScanType = "T2-MPR"
	ScanMPR     ScanType = "MPR"
	ScanUnknown ScanType = "Unknown"
)

// Rule describes one scan type: substring keywords and the inclusive
// TE/TR windows (ms) used when keywords fail to match
type Rule struct {
	Type     ScanType
	Keywords []string
	TEMin    float64
	TEMax    float64
	TRMin    float64
	TRMax    float64
}

// Rules is an ordered classification table. Order is the tie-break:
// the first matching rule wins.
type Rules []Rule

// contrastTokens mark a contrast-enhanced acquisition when found in the
// concatenated text fields
var contrastTokens = []string{"+c", "contrast", "ce", "post", "gd"}

// DefaultRules returns the standard brain-MR classification table.
// The returned slice is fresh on each call so callers may modify it.
func DefaultRules() Rules {
	return Rules{
		{Type: ScanT1, Keywords: []string{"t1", "t1_", "t1w", "t1-w", "mprage", "bravo", "spgr"},
			TEMin: 2, TEMax: 30, TRMin: 300, TRMax: 800},
		{Type: ScanT1CE, Keywords: []string{"t1", "t1_", "t1w", "+c", "contrast", "ce", "post"},
			TEMin: 2, TEMax: 30, TRMin: 300, TRMax: 800},
		{Type: ScanT2, Keywords: []string{"t2", "t2_", "t2w", "t2-w", "tse", "haste"},
			TEMin: 80, TEMax: 150, TRMin: 2000, TRMax: 6000},
		{Type: ScanFLAIR, Keywords: []string{"flair", "fluid", "dark fluid"},
			TEMin: 80, TEMax: 150, TRMin: 8000, TRMax: 12000},
		{Type: ScanDWI, Keywords: []string{"dwi", "diffusion"},
			TEMin: 50, TEMax: 100, TRMin: 3000, TRMax: 8000},
		{Type: ScanADC, Keywords: []string{"adc"},
			TEMin: 50, TEMax: 100, TRMin: 3000, TRMax: 8000},
	}
}

// Classify assigns a scan type from metadata alone. It is a pure
// function: no state, no I/O, worst case ScanUnknown.
//
// Priority: keyword match in table order, then TE/TR range match in
// table order (only when both are strictly positive, since 0 means
// absent), then the multiplanar-reconstruction heuristic. A T1 match
// with contrast evidence upgrades to T1-CE.
func (rules Rules) Classify(meta SliceMetadata) ScanType {
	text := strings.Join([]string{
		meta.SeriesDescription,
		meta.ProtocolName,
		meta.SequenceName,
		meta.ScanOptions,
	}, " ")

	hasContrast := meta.ContrastBolusAgent != ""
	if !hasContrast {
		for _, token := range contrastTokens {
			if strings.Contains(text, token) {
				hasContrast = true
				break
			}
		}
	}

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				if rule.Type == ScanT1 && hasContrast {
					return ScanT1CE
				}
				return rule.Type
			}
		}
	}

	te, tr := meta.EchoTime, meta.RepetitionTime
	if te > 0 && tr > 0 {
		for _, rule := range rules {
			if te >= rule.TEMin && te <= rule.TEMax && tr >= rule.TRMin && tr <= rule.TRMax {
				if rule.Type == ScanT1 && hasContrast {
					return ScanT1CE
				}
				return rule.Type
			}
		}
	}

	if strings.Contains(text, "mpr") || strings.Contains(text, "multiplanar") {
		switch {
		case strings.Contains(text, "t1"):
			return ScanT1MPR
		case strings.Contains(text, "t2"):
			return ScanT2MPR
		default:
			return ScanMPR
		}
	}

	return ScanUnknown
}
