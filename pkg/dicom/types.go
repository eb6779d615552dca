package dicom

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// Dataset represents a complete DICOM dataset
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // Parsed value
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// PixelData represents pixel data (native or encapsulated)
type PixelData struct {
	IsEncapsulated bool
	Frames         []Frame
}

// Frame represents a single frame of pixel data
type Frame struct {
	// For native (uncompressed) data
	Data []uint16

	// For encapsulated (compressed) data
	CompressedData []byte
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Find returns an element by tag value
func (ds *Dataset) Find(t Tag) (*Element, bool) {
	elem, ok := ds.Elements[t]
	return elem, ok
}

// GetString returns a string value from an element
func (elem *Element) GetString() (string, bool) {
	if s, ok := elem.Value.(string); ok {
		return s, true
	}
	return "", false
}

// GetInt returns an int value from an element
func (elem *Element) GetInt() (int, bool) {
	switch v := elem.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case string:
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &i); err == nil {
			return i, true
		}
	case []byte:
		if len(v) == 2 {
			return int(binary.LittleEndian.Uint16(v)), true
		}
		if len(v) == 4 {
			return int(binary.LittleEndian.Uint32(v)), true
		}
	}
	return 0, false
}

// GetFloat returns a float64 value from an element. DS-valued elements
// arrive as decimal strings; multi-valued strings yield their first value.
func (elem *Element) GetFloat() (float64, bool) {
	switch v := elem.Value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		first, _, _ := strings.Cut(v, "\\")
		f, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// GetFloats returns all float64 values of an element. DS-valued elements
// split on the DICOM backslash separator.
func (elem *Element) GetFloats() ([]float64, bool) {
	switch v := elem.Value.(type) {
	case []float32:
		res := make([]float64, len(v))
		for i, val := range v {
			res[i] = float64(val)
		}
		return res, true
	case []float64:
		return v, true
	case float32:
		return []float64{float64(v)}, true
	case float64:
		return []float64{v}, true
	case string:
		parts := strings.Split(v, "\\")
		res := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, false
			}
			res = append(res, f)
		}
		if len(res) == 0 {
			return nil, false
		}
		return res, true
	}
	return nil, false
}

// GetPixelData returns pixel data from an element
func (elem *Element) GetPixelData() (*PixelData, bool) {
	if pd, ok := elem.Value.(*PixelData); ok {
		return pd, true
	}
	return nil, false
}
