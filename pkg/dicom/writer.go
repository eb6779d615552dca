package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// WriteFile writes a dataset to a DICOM file using Explicit VR Little Endian
func WriteFile(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, ds)
}

// Write writes a dataset to a writer using Explicit VR Little Endian
func Write(w io.Writer, ds *Dataset) error {
	// 128-byte preamble + DICM magic
	preamble := make([]byte, 128)
	if _, err := w.Write(preamble); err != nil {
		return err
	}
	if _, err := w.Write([]byte("DICM")); err != nil {
		return err
	}

	// Elements sorted by tag
	var elements []*Element
	for _, elem := range ds.Elements {
		elements = append(elements, elem)
	}
	sort.Slice(elements, func(i, j int) bool {
		t1, t2 := elements[i].Tag, elements[j].Tag
		if t1.Group != t2.Group {
			return t1.Group < t2.Group
		}
		return t1.Element < t2.Element
	})

	for _, elem := range elements {
		if err := writeElement(w, elem); err != nil {
			return fmt.Errorf("writing element %v: %w", elem.Tag, err)
		}
	}
	return nil
}

func writeElement(w io.Writer, elem *Element) error {
	if err := binary.Write(w, binary.LittleEndian, elem.Tag.Group); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, elem.Tag.Element); err != nil {
		return err
	}

	vr := elem.VR
	if len(vr) != 2 {
		vr = "UN"
	}
	if _, err := w.Write([]byte(vr)); err != nil {
		return err
	}

	valBytes, err := encodeValue(elem.Value, vr)
	if err != nil {
		return err
	}

	if isLongVR(vr) {
		// 2 reserved bytes then 4-byte length
		if _, err := w.Write([]byte{0, 0}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(valBytes))); err != nil {
			return err
		}
	} else {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(valBytes))); err != nil {
			return err
		}
	}

	_, err = w.Write(valBytes)
	return err
}

func encodeValue(v interface{}, vr string) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}

	if pd, ok := v.(*PixelData); ok {
		if pd.IsEncapsulated {
			return nil, fmt.Errorf("encapsulated pixel data not supported by writer")
		}
		return encodeNativePixelData(pd), nil
	}

	switch val := v.(type) {
	case string:
		b := []byte(val)
		if len(b)%2 != 0 {
			b = append(b, ' ')
		}
		return b, nil
	case []string:
		joined := ""
		for i, s := range val {
			if i > 0 {
				joined += "\\"
			}
			joined += s
		}
		b := []byte(joined)
		if len(b)%2 != 0 {
			b = append(b, ' ')
		}
		return b, nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, val)
		return b, nil
	case []uint16:
		b := make([]byte, len(val)*2)
		for i, u := range val {
			binary.LittleEndian.PutUint16(b[i*2:], u)
		}
		return b, nil
	case int:
		switch vr {
		case "UL", "SL":
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(val))
			return b, nil
		case "IS", "DS":
			s := fmt.Sprintf("%d", val)
			if len(s)%2 != 0 {
				s += " "
			}
			return []byte(s), nil
		}
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(val))
		return b, nil
	case float64:
		switch vr {
		case "DS":
			s := fmt.Sprintf("%v", val)
			if len(s)%2 != 0 {
				s += " "
			}
			return []byte(s), nil
		case "FD":
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, math.Float64bits(val))
			return b, nil
		case "FL":
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(val)))
			return b, nil
		}
		return nil, fmt.Errorf("float64 for VR %s not implemented", vr)
	case []float64:
		// DS multi-value, backslash separated
		s := ""
		for i, f := range val {
			if i > 0 {
				s += "\\"
			}
			s += fmt.Sprintf("%v", f)
		}
		if len(s)%2 != 0 {
			s += " "
		}
		return []byte(s), nil
	case []byte:
		return val, nil
	}

	return nil, fmt.Errorf("unsupported value type %T for VR %s", v, vr)
}

func encodeNativePixelData(pd *PixelData) []byte {
	var total int
	for _, frame := range pd.Frames {
		total += len(frame.Data) * 2
	}
	b := make([]byte, 0, total)
	for _, frame := range pd.Frames {
		for _, pixel := range frame.Data {
			b = binary.LittleEndian.AppendUint16(b, pixel)
		}
	}
	return b
}
