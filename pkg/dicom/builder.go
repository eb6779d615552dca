package dicom

import (
	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WithElement adds a single element to the dataset
func WithElement(t tag.Tag, value interface{}) Option {
	return func(ds *Dataset) error {
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    GetVR(t),
			Value: value,
		}
		return nil
	}
}

// WithFileMeta adds the standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID, transferSyntax string) Option {
	return func(ds *Dataset) error {
		opts := []Option{
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, transferSyntax),
			WithElement(tag.ImplementationClassUID, "1.2.826.0.1.3680043.8.498.1"),
			WithElement(tag.ImplementationVersionName, "GO_DCM2NII"),
		}
		for _, opt := range opts {
			if err := opt(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithPixelData adds a native (uncompressed) pixel payload, split into
// frames of rows*cols pixels
func WithPixelData(rows, cols int, data []uint16) Option {
	return func(ds *Dataset) error {
		if len(data) == 0 {
			return nil
		}

		pixelsPerFrame := rows * cols
		numFrames := len(data) / pixelsPerFrame

		pd := &PixelData{
			Frames: make([]Frame, numFrames),
		}
		for i := 0; i < numFrames; i++ {
			fData := make([]uint16, pixelsPerFrame)
			copy(fData, data[i*pixelsPerFrame:(i+1)*pixelsPerFrame])
			pd.Frames[i] = Frame{Data: fData}
		}

		ds.Elements[tag.PixelData] = &Element{
			Tag:   tag.PixelData,
			VR:    "OW",
			Value: pd,
		}
		return nil
	}
}

// GetVR returns the Value Representation for a standard tag
func GetVR(t tag.Tag) string {
	if t.Group == 0x0002 {
		switch t.Element {
		case 0x0000:
			return "UL"
		case 0x0001:
			return "OB"
		case 0x0013:
			return "SH"
		}
		return "UI"
	}

	switch t {
	case tag.PatientName:
		return "PN"
	case tag.PatientID, tag.SeriesDescription, tag.StudyDescription,
		tag.ProtocolName, tag.ContrastBolusAgent, tag.RescaleType:
		return "LO"
	case tag.PatientBirthDate, tag.StudyDate, tag.SeriesDate:
		return "DA"
	case tag.StudyTime, tag.SeriesTime:
		return "TM"
	case tag.PatientSex, tag.Modality, tag.ImageType, tag.ScanOptions,
		tag.MRAcquisitionType, tag.PhotometricInterpretation:
		return "CS"
	case tag.SequenceName, tag.StudyID:
		return "SH"
	case tag.StudyInstanceUID, tag.SeriesInstanceUID, tag.SOPClassUID, tag.SOPInstanceUID:
		return "UI"
	case tag.SeriesNumber, tag.InstanceNumber, tag.NumberOfFrames:
		return "IS"
	case tag.SamplesPerPixel, tag.Rows, tag.Columns, tag.BitsAllocated,
		tag.BitsStored, tag.HighBit, tag.PixelRepresentation:
		return "US"
	case tag.RescaleIntercept, tag.RescaleSlope, tag.WindowCenter, tag.WindowWidth,
		tag.PixelSpacing, tag.SliceThickness, tag.SpacingBetweenSlices,
		tag.ImagePositionPatient, tag.ImageOrientationPatient, tag.SliceLocation,
		tag.EchoTime, tag.RepetitionTime, tag.InversionTime:
		return "DS"
	case tag.PixelData:
		return "OW"
	}

	return "UN"
}
