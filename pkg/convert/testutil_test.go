package convert

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom"
	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// sliceFixture describes one synthetic slice file for tests. Zero-value
// fields are left out of the dataset unless a default is noted.
type sliceFixture struct {
	SeriesNumber int
	Description  string
	Instance     int
	Location     *float64    // SliceLocation when set
	Position     *[3]float64 // ImagePositionPatient when set
	Modality     string      // default "MR"
	PatientID    string
	Rows, Cols   int // default 4x4
	Pixels       []uint16
	Rescale      *[2]float64 // slope, intercept when set
	Thickness    float64
	Spacing      [2]float64
	EchoTime     float64
	RepTime      float64
}

func floatPtr(f float64) *float64 { return &f }

// writeSliceFile builds a complete slice file at path
func writeSliceFile(t *testing.T, path string, fx sliceFixture) {
	t.Helper()

	if fx.Modality == "" {
		fx.Modality = "MR"
	}
	if fx.Rows == 0 {
		fx.Rows = 4
	}
	if fx.Cols == 0 {
		fx.Cols = 4
	}
	if fx.Pixels == nil {
		fx.Pixels = make([]uint16, fx.Rows*fx.Cols)
		for i := range fx.Pixels {
			fx.Pixels[i] = uint16(i)
		}
	}

	sop := fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d.%d", fx.SeriesNumber, fx.Instance)
	opts := []dicom.Option{
		dicom.WithFileMeta("1.2.840.10008.5.1.4.1.1.4", sop, "1.2.840.10008.1.2.1"),
		dicom.WithElement(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.4"),
		dicom.WithElement(tag.SOPInstanceUID, sop),
		dicom.WithElement(tag.Modality, fx.Modality),
		dicom.WithElement(tag.SeriesNumber, fx.SeriesNumber),
		dicom.WithElement(tag.SeriesDescription, fx.Description),
		dicom.WithElement(tag.InstanceNumber, fx.Instance),
		dicom.WithElement(tag.Rows, fx.Rows),
		dicom.WithElement(tag.Columns, fx.Cols),
		dicom.WithElement(tag.BitsAllocated, 16),
		dicom.WithElement(tag.PixelRepresentation, 0),
		dicom.WithPixelData(fx.Rows, fx.Cols, fx.Pixels),
	}
	if fx.PatientID != "" {
		opts = append(opts, dicom.WithElement(tag.PatientID, fx.PatientID))
	}
	if fx.Location != nil {
		opts = append(opts, dicom.WithElement(tag.SliceLocation, *fx.Location))
	}
	if fx.Position != nil {
		opts = append(opts, dicom.WithElement(tag.ImagePositionPatient,
			[]float64{fx.Position[0], fx.Position[1], fx.Position[2]}))
	}
	if fx.Rescale != nil {
		opts = append(opts,
			dicom.WithElement(tag.RescaleSlope, fx.Rescale[0]),
			dicom.WithElement(tag.RescaleIntercept, fx.Rescale[1]))
	}
	if fx.Thickness > 0 {
		opts = append(opts, dicom.WithElement(tag.SliceThickness, fx.Thickness))
	}
	if fx.Spacing != [2]float64{} {
		opts = append(opts, dicom.WithElement(tag.PixelSpacing, []float64{fx.Spacing[0], fx.Spacing[1]}))
	}
	if fx.EchoTime > 0 {
		opts = append(opts, dicom.WithElement(tag.EchoTime, fx.EchoTime))
	}
	if fx.RepTime > 0 {
		opts = append(opts, dicom.WithElement(tag.RepetitionTime, fx.RepTime))
	}

	ds, err := dicom.NewDataset(opts...)
	require.NoError(t, err)
	require.NoError(t, dicom.WriteFile(path, ds))
}
