// Package dicom provides a tolerant native Go reader and writer for
// DICOM files, scoped to what a volumetric series converter needs.
//
// The reader recovers as much header as possible from non-conformant
// files (missing preamble, truncated trailers); typed attribute getters
// return zero values for absent elements so callers never branch on
// parse mechanics.
//
// Basic usage:
//
//	ds, err := dicom.ReadFileHeader("/path/to/slice.dcm")
//	if err != nil {
//		// file is not usable at all
//	}
//	desc := dicom.GetSeriesDescription(ds)
//	te := dicom.GetEchoTime(ds)
package dicom

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// ReadFile reads a complete DICOM file from disk, pixel data included
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// ReadFileHeader reads only the header of a DICOM file in best-effort
// mode, skipping the pixel payload
func ReadFileHeader(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return ParseHeader(bytes.NewReader(data))
}

// getString returns a trimmed string element value, "" when absent
func getString(ds *Dataset, t Tag) string {
	if elem, ok := ds.Find(t); ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// getInt returns an int element value, 0 when absent
func getInt(ds *Dataset, t Tag) int {
	if elem, ok := ds.Find(t); ok {
		if v, ok := elem.GetInt(); ok {
			return v
		}
	}
	return 0
}

// getFloat returns a float element value, 0 when absent or unparsable
func getFloat(ds *Dataset, t Tag) float64 {
	if elem, ok := ds.Find(t); ok {
		if v, ok := elem.GetFloat(); ok {
			return v
		}
	}
	return 0
}

// GetModality returns the modality string (0008,0060)
func GetModality(ds *Dataset) string {
	return getString(ds, tag.Modality)
}

// GetSeriesDescription returns the series description (0008,103E)
func GetSeriesDescription(ds *Dataset) string {
	return getString(ds, tag.SeriesDescription)
}

// GetProtocolName returns the protocol name (0018,1030)
func GetProtocolName(ds *Dataset) string {
	return getString(ds, tag.ProtocolName)
}

// GetSequenceName returns the pulse sequence name (0018,0024)
func GetSequenceName(ds *Dataset) string {
	return getString(ds, tag.SequenceName)
}

// GetScanOptions returns the scan options (0018,0022)
func GetScanOptions(ds *Dataset) string {
	return getString(ds, tag.ScanOptions)
}

// GetMRAcquisitionType returns 2D/3D acquisition type (0018,0023)
func GetMRAcquisitionType(ds *Dataset) string {
	return getString(ds, tag.MRAcquisitionType)
}

// GetContrastBolusAgent returns the contrast agent string (0018,0010)
func GetContrastBolusAgent(ds *Dataset) string {
	return getString(ds, tag.ContrastBolusAgent)
}

// GetImageType returns the image type (0008,0008)
func GetImageType(ds *Dataset) string {
	return getString(ds, tag.ImageType)
}

// GetPatientID returns the patient identifier (0010,0020)
func GetPatientID(ds *Dataset) string {
	return getString(ds, tag.PatientID)
}

// GetPatientName returns the patient name (0010,0010)
func GetPatientName(ds *Dataset) string {
	return getString(ds, tag.PatientName)
}

// GetStudyDate returns the study date (0008,0020)
func GetStudyDate(ds *Dataset) string {
	return getString(ds, tag.StudyDate)
}

// GetSeriesNumber returns the series number (0020,0011)
func GetSeriesNumber(ds *Dataset) int {
	return getInt(ds, tag.SeriesNumber)
}

// GetInstanceNumber returns the instance number (0020,0013)
func GetInstanceNumber(ds *Dataset) int {
	return getInt(ds, tag.InstanceNumber)
}

// GetEchoTime returns TE in milliseconds (0018,0081), 0 when absent
func GetEchoTime(ds *Dataset) float64 {
	return getFloat(ds, tag.EchoTime)
}

// GetRepetitionTime returns TR in milliseconds (0018,0080), 0 when absent
func GetRepetitionTime(ds *Dataset) float64 {
	return getFloat(ds, tag.RepetitionTime)
}

// GetInversionTime returns TI in milliseconds (0018,0082), 0 when absent
func GetInversionTime(ds *Dataset) float64 {
	return getFloat(ds, tag.InversionTime)
}

// GetSliceThickness returns the slice thickness in mm (0018,0050), 0 when absent
func GetSliceThickness(ds *Dataset) float64 {
	return getFloat(ds, tag.SliceThickness)
}

// GetPixelSpacing returns the row/column spacing pair in mm (0028,0030).
// Absent or malformed spacing yields (1, 1).
func GetPixelSpacing(ds *Dataset) (float64, float64) {
	if elem, ok := ds.Find(tag.PixelSpacing); ok {
		if vals, ok := elem.GetFloats(); ok {
			switch len(vals) {
			case 0:
			case 1:
				return vals[0], vals[0]
			default:
				return vals[0], vals[1]
			}
		}
	}
	return 1, 1
}

// GetSliceLocation returns the slice location in mm (0020,1041) and
// whether the element was present
func GetSliceLocation(ds *Dataset) (float64, bool) {
	if elem, ok := ds.Find(tag.SliceLocation); ok {
		if v, ok := elem.GetFloat(); ok {
			return v, true
		}
	}
	return 0, false
}

// GetImagePositionPatient returns the 3-vector image position (0020,0032)
// and whether a full vector was present
func GetImagePositionPatient(ds *Dataset) ([3]float64, bool) {
	if elem, ok := ds.Find(tag.ImagePositionPatient); ok {
		if vals, ok := elem.GetFloats(); ok && len(vals) >= 3 {
			return [3]float64{vals[0], vals[1], vals[2]}, true
		}
	}
	return [3]float64{}, false
}

// GetRescale returns the rescale slope and intercept (0028,1053/1052)
// and whether both elements were present
func GetRescale(ds *Dataset) (slope, intercept float64, ok bool) {
	slopeElem, haveSlope := ds.Find(tag.RescaleSlope)
	intElem, haveInt := ds.Find(tag.RescaleIntercept)
	if !haveSlope || !haveInt {
		return 1, 0, false
	}
	s, sok := slopeElem.GetFloat()
	i, iok := intElem.GetFloat()
	if !sok || !iok {
		return 1, 0, false
	}
	return s, i, true
}

// GetRows returns the number of rows in the image (0028,0010)
func GetRows(ds *Dataset) int {
	return getInt(ds, tag.Rows)
}

// GetColumns returns the number of columns in the image (0028,0011)
func GetColumns(ds *Dataset) int {
	return getInt(ds, tag.Columns)
}

// GetBitsAllocated returns the bits allocated per sample (0028,0100)
func GetBitsAllocated(ds *Dataset) int {
	if v := getInt(ds, tag.BitsAllocated); v > 0 {
		return v
	}
	return 16
}

// GetPixelRepresentation returns 0 for unsigned, 1 for signed (0028,0103)
func GetPixelRepresentation(ds *Dataset) int {
	return getInt(ds, tag.PixelRepresentation)
}

// GetNumberOfFrames returns the frame count (0028,0008), defaulting to 1
func GetNumberOfFrames(ds *Dataset) int {
	if v := getInt(ds, tag.NumberOfFrames); v > 0 {
		return v
	}
	return 1
}
