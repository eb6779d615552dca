package dicom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

func buildTestDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset(
		WithFileMeta(
			"1.2.840.10008.5.1.4.1.1.4",
			"1.2.3.4.5",
			"1.2.840.10008.1.2.1",
		),
		WithElement(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.4"),
		WithElement(tag.SOPInstanceUID, "1.2.3.4.5"),
		WithElement(tag.Modality, "MR"),
		WithElement(tag.PatientID, "PAT-001"),
		WithElement(tag.SeriesNumber, 3),
		WithElement(tag.SeriesDescription, "AX T2 FLAIR"),
		WithElement(tag.InstanceNumber, 7),
		WithElement(tag.SliceLocation, 42.5),
		WithElement(tag.SliceThickness, 5.0),
		WithElement(tag.PixelSpacing, []float64{0.9, 1.1}),
		WithElement(tag.EchoTime, 95.0),
		WithElement(tag.RepetitionTime, 9000.0),
		WithElement(tag.Rows, 4),
		WithElement(tag.Columns, 4),
		WithElement(tag.BitsAllocated, 16),
		WithElement(tag.PixelRepresentation, 0),
		WithPixelData(4, 4, []uint16{
			0, 1, 2, 3,
			4, 5, 6, 7,
			8, 9, 10, 11,
			12, 13, 14, 15,
		}),
	)
	require.NoError(t, err)
	return ds
}

func TestRoundTrip_Attributes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildTestDataset(t)))

	ds, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, "MR", GetModality(ds))
	assert.Equal(t, "PAT-001", GetPatientID(ds))
	assert.Equal(t, "AX T2 FLAIR", GetSeriesDescription(ds))
	assert.Equal(t, 3, GetSeriesNumber(ds))
	assert.Equal(t, 7, GetInstanceNumber(ds))
	assert.Equal(t, 4, GetRows(ds))
	assert.Equal(t, 4, GetColumns(ds))
	assert.InDelta(t, 95.0, GetEchoTime(ds), 1e-9)
	assert.InDelta(t, 9000.0, GetRepetitionTime(ds), 1e-9)
	assert.InDelta(t, 5.0, GetSliceThickness(ds), 1e-9)

	loc, ok := GetSliceLocation(ds)
	require.True(t, ok)
	assert.InDelta(t, 42.5, loc, 1e-9)

	sx, sy := GetPixelSpacing(ds)
	assert.InDelta(t, 0.9, sx, 1e-9)
	assert.InDelta(t, 1.1, sy, 1e-9)
}

func TestRoundTrip_PixelData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildTestDataset(t)))

	ds, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	data, rows, cols, err := SliceData(ds)
	require.NoError(t, err)
	assert.Equal(t, 4, rows)
	assert.Equal(t, 4, cols)
	require.Len(t, data, 16)
	assert.Equal(t, 0.0, data[0])
	assert.Equal(t, 15.0, data[15])
}

func TestSliceData_Signed(t *testing.T) {
	ds, err := NewDataset(
		WithFileMeta("1.2.840.10008.5.1.4.1.1.2", "1.2.3", "1.2.840.10008.1.2.1"),
		WithElement(tag.Rows, 2),
		WithElement(tag.Columns, 2),
		WithElement(tag.BitsAllocated, 16),
		WithElement(tag.PixelRepresentation, 1),
		WithPixelData(2, 2, []uint16{0xFFFF, 0, 1, 0x8000}),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds))
	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	data, _, _, err := SliceData(parsed)
	require.NoError(t, err)
	assert.Equal(t, -1.0, data[0])
	assert.Equal(t, -32768.0, data[3])
}

func TestParseHeader_SkipsPixelData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildTestDataset(t)))

	ds, err := ParseHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, "AX T2 FLAIR", GetSeriesDescription(ds))
	_, ok := ds.Find(tag.PixelData)
	assert.False(t, ok, "pixel data should not be read in header-only mode")
}

func TestParseHeader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildTestDataset(t)))

	// Chop the file mid-element; best-effort parsing keeps what decoded
	raw := buf.Bytes()
	ds, err := ParseHeader(bytes.NewReader(raw[:len(raw)-200]))
	require.NoError(t, err)
	assert.NotEmpty(t, ds.Elements)
}

func TestParse_MissingMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildTestDataset(t)))

	// Strip the 128-byte preamble and DICM magic; the reader should
	// fall back to parsing from byte zero.
	raw := buf.Bytes()[132:]
	ds, err := ParseHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "MR", GetModality(ds))
}

func TestParse_HeaderlessNoFileMeta(t *testing.T) {
	// Headerless files carry no group 0002 file meta at all; the sniffed
	// explicit VR mode must hold for the whole dataset.
	ds, err := NewDataset(
		WithElement(tag.Modality, "MR"),
		WithElement(tag.SeriesDescription, "ax t2 tse"),
		WithElement(tag.SeriesNumber, 5),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds))

	raw := buf.Bytes()[132:]
	parsed, err := ParseHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "MR", GetModality(parsed))
	assert.Equal(t, "ax t2 tse", GetSeriesDescription(parsed))
	assert.Equal(t, 5, GetSeriesNumber(parsed))
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("this is not a dicom file at all")))
	assert.Error(t, err)
}

func TestGetRescale(t *testing.T) {
	ds, err := NewDataset(
		WithElement(tag.RescaleSlope, 1.0),
		WithElement(tag.RescaleIntercept, -1024.0),
	)
	require.NoError(t, err)

	slope, intercept, ok := GetRescale(ds)
	require.True(t, ok)
	assert.Equal(t, 1.0, slope)
	assert.Equal(t, -1024.0, intercept)

	empty, err := NewDataset()
	require.NoError(t, err)
	slope, intercept, ok = GetRescale(empty)
	assert.False(t, ok)
	assert.Equal(t, 1.0, slope)
	assert.Equal(t, 0.0, intercept)
}

func TestElement_GetFloats_DS(t *testing.T) {
	elem := &Element{VR: "DS", Value: `0.9\1.1`}
	vals, ok := elem.GetFloats()
	require.True(t, ok)
	assert.Equal(t, []float64{0.9, 1.1}, vals)

	elem = &Element{VR: "DS", Value: "not a number"}
	_, ok = elem.GetFloats()
	assert.False(t, ok)
}
