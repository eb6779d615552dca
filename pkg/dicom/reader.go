package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader reads DICOM files element by element.
//
// Unlike a strict conformance parser, the reader is built for batch
// ingestion of scanner output in the wild: files without a preamble,
// truncated trailers, and vendor-private garbage must yield as much of
// the header as can be recovered rather than an error.
type Reader struct {
	r              io.Reader
	transferSyntax string
	explicitVR     bool
	littleEndian   bool

	// HeaderOnly stops reading at the PixelData element (7FE0,0010),
	// leaving the pixel payload unread.
	HeaderOnly bool

	// BestEffort returns a partial dataset instead of an error when an
	// element fails to decode after at least one element has been read.
	BestEffort bool
}

// NewReader creates a new DICOM reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:            r,
		explicitVR:   true,
		littleEndian: true,
	}
}

// Parse reads a complete DICOM file strictly
func Parse(r io.Reader) (*Dataset, error) {
	return NewReader(r).ReadDataset()
}

// ParseHeader reads only the header of a DICOM file in best-effort mode.
// The pixel payload is never decoded. This is the cheap pass used for
// series discovery over large trees.
func ParseHeader(r io.Reader) (*Dataset, error) {
	reader := NewReader(r)
	reader.HeaderOnly = true
	reader.BestEffort = true
	return reader.ReadDataset()
}

// ReadDataset reads the dataset
func (r *Reader) ReadDataset() (*Dataset, error) {
	ds := &Dataset{
		Elements: make(map[Tag]*Element),
	}

	if err := r.readPreamble(); err != nil {
		return nil, err
	}

	for {
		tag, err := r.readTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			if r.BestEffort && len(ds.Elements) > 0 {
				break
			}
			return nil, fmt.Errorf("reading tag: %w", err)
		}

		// Leaving the File Meta group without having seen a
		// TransferSyntaxUID: assume Implicit VR Little Endian.
		if tag.Group != 0x0002 && r.transferSyntax == "" {
			r.transferSyntax = "1.2.840.10008.1.2"
			r.updateTransferSyntax()
		}

		if r.HeaderOnly && tag.Group == 0x7FE0 && tag.Element == 0x0010 {
			break
		}

		elem, err := r.readElementWithTag(tag)
		if err != nil {
			if r.BestEffort && len(ds.Elements) > 0 {
				break
			}
			return nil, fmt.Errorf("reading element %v: %w", tag, err)
		}

		ds.Elements[elem.Tag] = elem

		// TransferSyntaxUID switches decoding for the rest of the file
		if tag.Group == 0x0002 && tag.Element == 0x0010 {
			if tsStr, ok := elem.Value.(string); ok {
				r.transferSyntax = tsStr
				r.updateTransferSyntax()
			}
		}
	}

	if len(ds.Elements) == 0 {
		return nil, fmt.Errorf("no elements decoded")
	}
	return ds, nil
}

// readPreamble consumes the 128-byte preamble and DICM magic. Files
// written without a preamble (pre-1993 or misbehaving exporters) start
// directly with the first element; in that case the consumed bytes are
// pushed back and the VR mode is sniffed from them.
func (r *Reader) readPreamble() error {
	head := make([]byte, 132)
	n, err := io.ReadFull(r.r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("reading preamble: %w", err)
	}
	head = head[:n]

	if n == 132 && string(head[128:132]) == "DICM" {
		// Group 0002 is always Explicit VR Little Endian
		r.explicitVR = true
		r.littleEndian = true
		return nil
	}

	// No magic: parse from byte zero. Headerless files carry no group
	// 0002 file meta, so the sniffed mode must stick; pinning the
	// transfer syntax here keeps the dataset loop from assuming
	// Implicit VR at the first non-meta tag.
	r.r = io.MultiReader(bytes.NewReader(head), r.r)
	r.explicitVR = sniffExplicitVR(head)
	if r.explicitVR {
		r.transferSyntax = "1.2.840.10008.1.2.1"
	} else {
		r.transferSyntax = "1.2.840.10008.1.2"
	}
	return nil
}

// sniffExplicitVR guesses the VR mode of a headerless file by checking
// whether bytes 4..6 of the first element form a known VR code.
func sniffExplicitVR(head []byte) bool {
	if len(head) < 6 {
		return true
	}
	vr := string(head[4:6])
	switch vr {
	case "AE", "AS", "AT", "CS", "DA", "DS", "DT", "FL", "FD", "IS",
		"LO", "LT", "OB", "OD", "OF", "OL", "OW", "PN", "SH", "SL",
		"SQ", "SS", "ST", "TM", "UC", "UI", "UL", "UN", "UR", "US", "UT":
		return true
	}
	return false
}

// readElementWithTag reads a DICOM element after the tag has been read
func (r *Reader) readElementWithTag(tag Tag) (*Element, error) {
	var vr string
	var vl uint32

	if r.explicitVR {
		vrBytes := make([]byte, 2)
		if _, err := io.ReadFull(r.r, vrBytes); err != nil {
			return nil, err
		}
		vr = string(vrBytes)

		if isLongVR(vr) {
			// 2 reserved bytes then 4-byte VL
			reserved := make([]byte, 2)
			if _, err := io.ReadFull(r.r, reserved); err != nil {
				return nil, err
			}
			if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
				return nil, err
			}
		} else {
			var vl16 uint16
			if err := binary.Read(r.r, binary.LittleEndian, &vl16); err != nil {
				return nil, err
			}
			vl = uint32(vl16)
		}
	} else {
		// Implicit VR: VL is always 4 bytes, VR comes from the tag
		if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
			return nil, err
		}
		vr = getImplicitVR(tag)
	}

	value, err := r.readValue(tag, vr, vl)
	if err != nil {
		return nil, err
	}

	return &Element{
		Tag:   tag,
		VR:    vr,
		Value: value,
	}, nil
}

// readTag reads a DICOM tag
func (r *Reader) readTag() (Tag, error) {
	var group, element uint16
	if err := binary.Read(r.r, binary.LittleEndian, &group); err != nil {
		return Tag{}, err
	}
	if err := binary.Read(r.r, binary.LittleEndian, &element); err != nil {
		return Tag{}, err
	}
	return Tag{Group: group, Element: element}, nil
}

// maxValueLength rejects nonsense lengths from corrupt headers before
// allocating for them
const maxValueLength = 1 << 28

// readValue reads the value based on VR and VL
func (r *Reader) readValue(tag Tag, vr string, vl uint32) (interface{}, error) {
	if vl == 0xFFFFFFFF {
		return r.readUndefinedLengthValue(tag, vr)
	}
	if vl > maxValueLength {
		return nil, fmt.Errorf("implausible value length %d for %v", vl, tag)
	}

	data := make([]byte, vl)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}

	return parseValue(vr, data)
}

// readUndefinedLengthValue handles pixel data and sequences with undefined length
func (r *Reader) readUndefinedLengthValue(tag Tag, _ string) (interface{}, error) {
	if tag.Group == 0x7FE0 && tag.Element == 0x0010 {
		return r.readEncapsulatedPixelData()
	}
	// Sequences are not consumed by the converter; skip to the
	// Sequence Delimitation Item.
	return r.skipUndefinedLengthSequence()
}

// skipUndefinedLengthSequence reads until Sequence Delimitation Item (FFFE,E0DD)
func (r *Reader) skipUndefinedLengthSequence() (interface{}, error) {
	for {
		itemTag, err := r.readTag()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("reading sequence item tag: %w", err)
		}

		// Delimiters have a 4-byte length and no VR
		if itemTag.Group == 0xFFFE {
			var delimLen uint32
			if err := binary.Read(r.r, binary.LittleEndian, &delimLen); err != nil {
				return nil, fmt.Errorf("reading delimiter length: %w", err)
			}

			switch itemTag.Element {
			case 0xE0DD: // Sequence Delimitation
				return nil, nil
			case 0xE00D: // Item Delimitation
				continue
			case 0xE000: // Item Start
				if delimLen != 0xFFFFFFFF && delimLen > 0 {
					if _, err := io.CopyN(io.Discard, r.r, int64(delimLen)); err != nil {
						return nil, fmt.Errorf("skipping item data: %w", err)
					}
				}
				continue
			}
		}

		// Regular nested element: parse length and skip
		var vl uint32
		if r.explicitVR {
			var vrBytes [2]byte
			if _, err := io.ReadFull(r.r, vrBytes[:]); err != nil {
				return nil, fmt.Errorf("reading VR: %w", err)
			}
			vr := string(vrBytes[:])

			if isLongVR(vr) {
				var reserved uint16
				binary.Read(r.r, binary.LittleEndian, &reserved)
				binary.Read(r.r, binary.LittleEndian, &vl)
			} else {
				var vl16 uint16
				binary.Read(r.r, binary.LittleEndian, &vl16)
				vl = uint32(vl16)
			}
		} else {
			binary.Read(r.r, binary.LittleEndian, &vl)
		}

		if vl != 0xFFFFFFFF && vl > 0 {
			if _, err := io.CopyN(io.Discard, r.r, int64(vl)); err != nil {
				return nil, fmt.Errorf("skipping element value: %w", err)
			}
		} else if vl == 0xFFFFFFFF {
			if _, err := r.skipUndefinedLengthSequence(); err != nil {
				return nil, err
			}
		}
	}
}

// readEncapsulatedPixelData reads encapsulated (compressed) pixel data frames.
// Frames are kept as raw compressed bytes; the converter treats them as
// unreadable slices since it only stacks native pixel data.
func (r *Reader) readEncapsulatedPixelData() (*PixelData, error) {
	pd := &PixelData{
		IsEncapsulated: true,
		Frames:         []Frame{},
	}

	// Basic Offset Table item
	botTag, err := r.readTag()
	if err != nil {
		return nil, err
	}
	if botTag.Group != 0xFFFE || botTag.Element != 0xE000 {
		return nil, fmt.Errorf("expected BOT item tag, got %v", botTag)
	}

	var botLength uint32
	if err := binary.Read(r.r, binary.LittleEndian, &botLength); err != nil {
		return nil, err
	}
	if botLength > 0 {
		if _, err := io.CopyN(io.Discard, r.r, int64(botLength)); err != nil {
			return nil, err
		}
	}

	for {
		itemTag, err := r.readTag()
		if err != nil {
			return nil, err
		}

		if itemTag.Group == 0xFFFE && itemTag.Element == 0xE0DD {
			var delimLength uint32
			if err := binary.Read(r.r, binary.LittleEndian, &delimLength); err != nil {
				return nil, err
			}
			break
		}

		if itemTag.Group != 0xFFFE || itemTag.Element != 0xE000 {
			return nil, fmt.Errorf("expected item tag, got %v", itemTag)
		}

		var itemLength uint32
		if err := binary.Read(r.r, binary.LittleEndian, &itemLength); err != nil {
			return nil, err
		}

		frameData := make([]byte, itemLength)
		if _, err := io.ReadFull(r.r, frameData); err != nil {
			return nil, err
		}

		pd.Frames = append(pd.Frames, Frame{CompressedData: frameData})
	}

	return pd, nil
}

// updateTransferSyntax updates reader settings based on transfer syntax
func (r *Reader) updateTransferSyntax() {
	switch r.transferSyntax {
	case "1.2.840.10008.1.2": // Implicit VR Little Endian
		r.explicitVR = false
		r.littleEndian = true
	default: // Explicit VR Little Endian and all encapsulated syntaxes
		r.explicitVR = true
		r.littleEndian = true
	}
}

// isLongVR returns true if VR uses 4-byte VL
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OW", "SQ", "UC", "UR", "UT", "UN":
		return true
	}
	return false
}

// getImplicitVR returns VR for a tag when using Implicit VR transfer syntax
func getImplicitVR(tag Tag) string {
	switch {
	case tag.Group == 0x0002:
		return "UL"
	case tag.Group == 0x7FE0 && tag.Element == 0x0010:
		return "OW"
	case tag.Group == 0x0028:
		switch tag.Element {
		case 0x0002, 0x0010, 0x0011, 0x0100, 0x0101, 0x0102, 0x0103:
			return "US"
		case 0x0008:
			return "IS"
		case 0x0030, 0x1050, 0x1051, 0x1052, 0x1053:
			return "DS"
		case 0x0004:
			return "CS"
		}
	case tag.Group == 0x0018:
		switch tag.Element {
		case 0x0050, 0x0080, 0x0081, 0x0082, 0x0088:
			return "DS"
		case 0x0010, 0x1030:
			return "LO"
		case 0x0022, 0x0023:
			return "CS"
		case 0x0024:
			return "SH"
		}
	case tag.Group == 0x0020:
		switch tag.Element {
		case 0x0011, 0x0013:
			return "IS"
		case 0x0032, 0x0037, 0x1041:
			return "DS"
		}
	case tag.Group == 0x0008:
		switch tag.Element {
		case 0x0016, 0x0018:
			return "UI"
		case 0x0008, 0x0060:
			return "CS"
		case 0x103E, 0x1030:
			return "LO"
		case 0x0020, 0x0021:
			return "DA"
		}
	case tag.Group == 0x0010:
		switch tag.Element {
		case 0x0010:
			return "PN"
		case 0x0020:
			return "LO"
		}
	}
	return "UN"
}

// parseValue converts raw bytes to a typed value based on VR
func parseValue(vr string, data []byte) (interface{}, error) {
	switch vr {
	case "UI", "SH", "LO", "ST", "LT", "UT", "PN", "CS", "DA", "TM", "DT", "AS", "IS", "DS":
		// String types: trim null/space padding
		s := string(data)
		for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
			s = s[:len(s)-1]
		}
		return s, nil
	case "US":
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data), nil
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values, nil
	case "UL":
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data), nil
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return values, nil
	case "SS":
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data)), nil
		}
	case "SL":
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data)), nil
		}
	case "FL":
		if len(data) == 4 {
			var f float32
			binary.Read(bytes.NewReader(data), binary.LittleEndian, &f)
			return f, nil
		}
	case "FD":
		if len(data) == 8 {
			var f float64
			binary.Read(bytes.NewReader(data), binary.LittleEndian, &f)
			return f, nil
		}
	case "OB", "OW", "UN":
		return data, nil
	}
	return data, nil
}
