// Package convert turns directory trees of DICOM slice files into
// NIfTI volumes: series discovery, scan-type classification, slice
// ordering, volume assembly, and batch reporting.
package convert

import (
	"fmt"
	"strings"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom"
)

// SliceMetadata is the per-file acquisition record used for grouping
// and classification. It is extracted from the header alone; pixel data
// is never touched. Text fields are lowercased and trimmed, absent
// fields are empty. Numeric fields default to 0 when absent or
// unparsable, indistinguishable from a genuine zero; the classifier
// guards against that by requiring strictly positive TE and TR before
// using them.
type SliceMetadata struct {
	SeriesDescription  string
	ProtocolName       string
	SequenceName       string
	ScanOptions        string
	MRAcquisitionType  string
	EchoTime           float64 // ms
	RepetitionTime     float64 // ms
	InversionTime      float64 // ms
	ContrastBolusAgent string
	ImageType          string
	Modality           string
	SeriesNumber       int
	InstanceNumber     int
	SliceThickness     float64 // mm
	PixelSpacing       [2]float64
	PatientID          string
	StudyDate          string
	PatientName        string
}

// ExtractMetadata reads the header of a single slice file. Parsing is
// best-effort: any recoverable subset of elements produces a record,
// and only a file yielding no elements at all is an error.
func ExtractMetadata(path string) (SliceMetadata, error) {
	ds, err := dicom.ReadFileHeader(path)
	if err != nil {
		return SliceMetadata{}, fmt.Errorf("extracting metadata from %s: %w", path, err)
	}
	return metadataFromDataset(ds), nil
}

func metadataFromDataset(ds *dicom.Dataset) SliceMetadata {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	sx, sy := dicom.GetPixelSpacing(ds)
	return SliceMetadata{
		SeriesDescription:  norm(dicom.GetSeriesDescription(ds)),
		ProtocolName:       norm(dicom.GetProtocolName(ds)),
		SequenceName:       norm(dicom.GetSequenceName(ds)),
		ScanOptions:        norm(dicom.GetScanOptions(ds)),
		MRAcquisitionType:  norm(dicom.GetMRAcquisitionType(ds)),
		EchoTime:           dicom.GetEchoTime(ds),
		RepetitionTime:     dicom.GetRepetitionTime(ds),
		InversionTime:      dicom.GetInversionTime(ds),
		ContrastBolusAgent: norm(dicom.GetContrastBolusAgent(ds)),
		ImageType:          norm(dicom.GetImageType(ds)),
		Modality:           norm(dicom.GetModality(ds)),
		SeriesNumber:       dicom.GetSeriesNumber(ds),
		InstanceNumber:     dicom.GetInstanceNumber(ds),
		SliceThickness:     dicom.GetSliceThickness(ds),
		PixelSpacing:       [2]float64{sx, sy},
		PatientID:          norm(dicom.GetPatientID(ds)),
		StudyDate:          norm(dicom.GetStudyDate(ds)),
		PatientName:        norm(dicom.GetPatientName(ds)),
	}
}
