package convert

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom"
)

// ErrShapeMismatch signals that slices within a series disagree on
// pixel-array dimensions. The series is rejected rather than stacked:
// stacking ragged slices would produce a silently corrupt volume.
var ErrShapeMismatch = fmt.Errorf("inconsistent slice dimensions in series")

// Volume is a reconstructed 3-D image. Data is slice-major, row-major
// within a slice. Affine is the diagonal voxel-to-mm transform; no
// rotation or shear is modeled.
type Volume struct {
	Rows   int
	Cols   int
	Slices int
	Data   []float32
	Affine [4][4]float64
}

// At returns the voxel value at (row, col, slice)
func (v *Volume) At(r, c, s int) float32 {
	return v.Data[s*v.Rows*v.Cols+r*v.Cols+c]
}

// VoxelSize returns the (x, y, z) voxel dimensions in mm
func (v *Volume) VoxelSize() [3]float64 {
	return [3]float64{v.Affine[0][0], v.Affine[1][1], v.Affine[2][2]}
}

// Shape returns (rows, cols, slices)
func (v *Volume) Shape() [3]int {
	return [3]int{v.Rows, v.Cols, v.Slices}
}

// IntensityStats summarizes the voxel intensity distribution of a volume
type IntensityStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// AssembleVolume stacks ordered slices into a Volume.
//
// Every slice must decode and match the first slice's dimensions.
// When the series modality is CT and a slice carries both rescale slope
// and intercept, Hounsfield calibration value*slope+intercept is applied
// before stacking. The affine diagonal is (spacing row, spacing col,
// thickness) with 1.0 substituted for absent or non-positive values.
func AssembleVolume(ctx context.Context, slices []OrderedSlice, meta SliceMetadata) (*Volume, IntensityStats, error) {
	if len(slices) == 0 {
		return nil, IntensityStats{}, ErrEmptySeries
	}

	var rows, cols int
	buf := make([]float64, 0)

	for i, sl := range slices {
		data, r, c, err := dicom.SliceData(sl.Dataset)
		if err != nil {
			return nil, IntensityStats{}, fmt.Errorf("decoding slice %s: %w", sl.Path, err)
		}
		if i == 0 {
			rows, cols = r, c
			buf = make([]float64, 0, rows*cols*len(slices))
		} else if r != rows || c != cols {
			slog.WarnContext(ctx, "slice dimensions differ within series",
				"path", sl.Path, "got", fmt.Sprintf("%dx%d", r, c), "want", fmt.Sprintf("%dx%d", rows, cols))
			return nil, IntensityStats{}, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				ErrShapeMismatch, sl.Path, r, c, rows, cols)
		}

		if meta.Modality == "ct" {
			if slope, intercept, ok := dicom.GetRescale(sl.Dataset); ok {
				for j := range data {
					data[j] = data[j]*slope + intercept
				}
			}
		}

		buf = append(buf, data...)
	}

	vol := &Volume{
		Rows:   rows,
		Cols:   cols,
		Slices: len(slices),
		Data:   make([]float32, len(buf)),
		Affine: affineFromMeta(meta),
	}
	for i, v := range buf {
		vol.Data[i] = float32(v)
	}

	stats := IntensityStats{Min: buf[0], Max: buf[0]}
	for _, v := range buf {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean, stats.StdDev = stat.MeanStdDev(buf, nil)

	return vol, stats, nil
}

// affineFromMeta builds the diagonal voxel-to-mm transform
func affineFromMeta(meta SliceMetadata) [4][4]float64 {
	var affine [4][4]float64
	for i := 0; i < 4; i++ {
		affine[i][i] = 1
	}
	if meta.PixelSpacing[0] > 0 {
		affine[0][0] = meta.PixelSpacing[0]
	}
	if meta.PixelSpacing[1] > 0 {
		affine[1][1] = meta.PixelSpacing[1]
	}
	if meta.SliceThickness > 0 {
		affine[2][2] = meta.SliceThickness
	}
	return affine
}
