package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpfielding/dcm2nii.go/pkg/dicom"
	"github.com/jpfielding/dcm2nii.go/pkg/dicom/tag"
)

// NewForgeCmd creates the forge command, which writes a synthetic DICOM
// series for smoke-testing the pipeline without patient data
func NewForgeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forge",
		Short: "Write a synthetic DICOM series",
		Long:  "Generates a small synthetic series (gradient pixel data, plausible MR metadata) so the converter can be exercised end to end without PHI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			slices, _ := cmd.Flags().GetInt("slices")
			size, _ := cmd.Flags().GetInt("size")
			desc, _ := cmd.Flags().GetString("description")

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			for i := 1; i <= slices; i++ {
				pixels := make([]uint16, size*size)
				for j := range pixels {
					pixels[j] = uint16((j + i*13) % 4096)
				}

				ds, err := dicom.NewDataset(
					dicom.WithFileMeta(
						"1.2.840.10008.5.1.4.1.1.4",
						fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d", i),
						"1.2.840.10008.1.2.1",
					),
					dicom.WithElement(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.4"),
					dicom.WithElement(tag.SOPInstanceUID, fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d", i)),
					dicom.WithElement(tag.Modality, "MR"),
					dicom.WithElement(tag.PatientID, "FORGE-001"),
					dicom.WithElement(tag.SeriesNumber, 1),
					dicom.WithElement(tag.SeriesDescription, desc),
					dicom.WithElement(tag.InstanceNumber, i),
					dicom.WithElement(tag.SliceLocation, float64(i)*5.0),
					dicom.WithElement(tag.SliceThickness, 5.0),
					dicom.WithElement(tag.PixelSpacing, []float64{0.9, 0.9}),
					dicom.WithElement(tag.EchoTime, 95.0),
					dicom.WithElement(tag.RepetitionTime, 4000.0),
					dicom.WithElement(tag.Rows, size),
					dicom.WithElement(tag.Columns, size),
					dicom.WithElement(tag.BitsAllocated, 16),
					dicom.WithElement(tag.BitsStored, 12),
					dicom.WithElement(tag.HighBit, 11),
					dicom.WithElement(tag.PixelRepresentation, 0),
					dicom.WithPixelData(size, size, pixels),
				)
				if err != nil {
					return err
				}

				path := filepath.Join(outDir, fmt.Sprintf("slice_%03d.dcm", i))
				if err := dicom.WriteFile(path, ds); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
			}

			fmt.Printf("Wrote %d slices to %s\n", slices, outDir)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "forged_series", "Output directory")
	pf.Int("slices", 16, "Number of slices to generate")
	pf.Int("size", 64, "Rows/columns per slice")
	pf.String("description", "ax t2 tse synthetic", "Series description")

	return cmd
}
