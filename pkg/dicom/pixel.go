package dicom

import (
	"fmt"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// ErrEncapsulated is returned when pixel data uses a compressed transfer
// syntax the converter does not decode.
var ErrEncapsulated = fmt.Errorf("encapsulated pixel data not supported")

// GetPixelData extracts pixel data from the dataset, normalizing native
// payloads into per-frame []uint16 buffers
func (ds *Dataset) GetPixelData() (*PixelData, error) {
	elem, ok := ds.Find(tag.PixelData)
	if !ok {
		return nil, fmt.Errorf("no pixel data element found")
	}

	// Already converted (encapsulated syntaxes)
	if pd, ok := elem.GetPixelData(); ok {
		return pd, nil
	}

	var u16Raw []uint16
	var byteRaw []byte

	switch v := elem.Value.(type) {
	case []byte:
		byteRaw = v
	case []uint16:
		u16Raw = v
	default:
		return nil, fmt.Errorf("pixel data element has unexpected type: %T", elem.Value)
	}

	rows := GetRows(ds)
	cols := GetColumns(ds)
	numFrames := GetNumberOfFrames(ds)
	bitsAllocated := GetBitsAllocated(ds)

	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("invalid dimensions for pixel data conversion: %dx%d", rows, cols)
	}

	pd := &PixelData{
		IsEncapsulated: false,
		Frames:         make([]Frame, numFrames),
	}

	bytesPerPixel := (bitsAllocated + 7) / 8
	pixelsPerFrame := rows * cols
	frameSizeInBytes := pixelsPerFrame * bytesPerPixel

	for i := 0; i < numFrames; i++ {
		u16Data := make([]uint16, pixelsPerFrame)

		if len(u16Raw) > 0 {
			start := i * pixelsPerFrame
			end := start + pixelsPerFrame
			if end > len(u16Raw) {
				return nil, fmt.Errorf("pixel data truncated: expected %d pixels for %d frames, got %d", numFrames*pixelsPerFrame, numFrames, len(u16Raw))
			}
			copy(u16Data, u16Raw[start:end])
		} else if len(byteRaw) > 0 {
			start := i * frameSizeInBytes
			end := start + frameSizeInBytes
			if end > len(byteRaw) {
				return nil, fmt.Errorf("pixel data truncated: expected %d bytes for %d frames, got %d", numFrames*frameSizeInBytes, numFrames, len(byteRaw))
			}

			frameData := byteRaw[start:end]
			if bytesPerPixel == 2 {
				for j := 0; j < pixelsPerFrame; j++ {
					u16Data[j] = uint16(frameData[j*2]) | (uint16(frameData[j*2+1]) << 8)
				}
			} else {
				for j := 0; j < pixelsPerFrame; j++ {
					u16Data[j] = uint16(frameData[j])
				}
			}
		}

		pd.Frames[i] = Frame{Data: u16Data}
	}

	return pd, nil
}

// SliceData returns the first frame of a dataset as a row-major float64
// buffer with its dimensions, honoring the pixel representation sign.
// Encapsulated pixel data yields ErrEncapsulated.
func SliceData(ds *Dataset) (data []float64, rows, cols int, err error) {
	pd, err := ds.GetPixelData()
	if err != nil {
		return nil, 0, 0, err
	}
	if pd.IsEncapsulated {
		return nil, 0, 0, ErrEncapsulated
	}
	if len(pd.Frames) == 0 {
		return nil, 0, 0, fmt.Errorf("pixel data has no frames")
	}

	rows = GetRows(ds)
	cols = GetColumns(ds)
	signed := GetPixelRepresentation(ds) == 1

	raw := pd.Frames[0].Data
	if len(raw) != rows*cols {
		return nil, 0, 0, fmt.Errorf("frame size %d does not match %dx%d", len(raw), rows, cols)
	}

	data = make([]float64, len(raw))
	for i, v := range raw {
		if signed {
			data[i] = float64(int16(v))
		} else {
			data[i] = float64(v)
		}
	}
	return data, rows, cols, nil
}
