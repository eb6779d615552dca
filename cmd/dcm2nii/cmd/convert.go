package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpfielding/dcm2nii.go/pkg/convert"
)

// NewConvertCmd creates the batch conversion command
func NewConvertCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a DICOM tree into NIfTI volumes",
		Long:  "Walks the input tree, groups slices into series, and writes one .nii.gz per convertible series plus a conversion_report.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDir, _ := cmd.Flags().GetString("input")
			outputDir, _ := cmd.Flags().GetString("output")
			configPath, _ := cmd.Flags().GetString("config")
			sampleLimit, _ := cmd.Flags().GetInt("sample-limit")

			if inputDir == "" && len(args) > 0 {
				inputDir = args[0]
			}
			if inputDir == "" {
				return fmt.Errorf("input directory is required. Use --input flag or provide as argument")
			}

			cfg, err := convert.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if sampleLimit > 0 {
				cfg.Input.SampleLimit = sampleLimit
			}

			converter, err := convert.NewConverter(cfg)
			if err != nil {
				return err
			}

			report, err := converter.Run(ctx, inputDir)
			if err != nil {
				return err
			}

			fmt.Printf("Converted %d series\n", report.TotalSeries)
			for scanType, count := range report.ByType {
				fmt.Printf("  %s: %d\n", scanType, count)
			}
			if len(report.Failures) > 0 {
				fmt.Printf("Failed: %d series (see report)\n", len(report.Failures))
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("input", "i", "", "Directory tree containing DICOM slice files")
	pf.StringP("output", "o", "", "Output directory (default: nifti_output next to input)")
	pf.StringP("config", "c", "dcm2nii.yaml", "YAML configuration file")
	pf.Int("sample-limit", 0, "Max files opened during series discovery (0 = config default)")

	return cmd
}
