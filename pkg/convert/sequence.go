package convert

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom"
)

// ErrEmptySeries signals that sequencing produced zero usable slices;
// the series cannot be converted.
var ErrEmptySeries = errors.New("no readable slices in series")

// OrderedSlice is one slice positioned within its stack. Dataset holds
// the fully parsed file, pixel payload included, since assembly needs it.
type OrderedSlice struct {
	Position float64
	Instance int
	Path     string
	Dataset  *dicom.Dataset
}

// slicePosition resolves the scalar stacking position of one slice.
// Preference: explicit slice location, then the z component of the
// image position vector, then the instance number.
func slicePosition(ds *dicom.Dataset, instance int) float64 {
	if loc, ok := dicom.GetSliceLocation(ds); ok {
		return loc
	}
	if pos, ok := dicom.GetImagePositionPatient(ds); ok {
		return pos[2]
	}
	return float64(instance)
}

// SequenceSlices fully parses each file of a series and orders them
// ascending by (position, instance number). The instance number breaks
// ties between equal or absent positions. Unreadable files are logged
// and skipped; if none survive, ErrEmptySeries is returned.
func SequenceSlices(ctx context.Context, files []string) ([]OrderedSlice, error) {
	slices := make([]OrderedSlice, 0, len(files))

	for _, path := range files {
		ds, err := dicom.ReadFile(path)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable slice", "path", path, "error", err)
			continue
		}
		instance := dicom.GetInstanceNumber(ds)
		slices = append(slices, OrderedSlice{
			Position: slicePosition(ds, instance),
			Instance: instance,
			Path:     path,
			Dataset:  ds,
		})
	}

	if len(slices) == 0 {
		return nil, ErrEmptySeries
	}

	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Position != slices[j].Position {
			return slices[i].Position < slices[j].Position
		}
		return slices[i].Instance < slices[j].Instance
	})

	return slices, nil
}
