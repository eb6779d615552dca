package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpfielding/dcm2nii.go/pkg/convert"
)

// NewInspectCmd creates the inspect command, a diagnostic dump of
// per-file metadata and the classification each file would receive
func NewInspectCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump slice metadata and classification",
		Long:  "Reads headers from a file or the first files of a tree and prints the fields that drive series grouping and scan-type classification.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			limit, _ := cmd.Flags().GetInt("limit")

			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("path is required. Use --file flag or provide as argument")
			}

			files, err := collectSliceFiles(path, limit)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no DICOM files found under %s", path)
			}

			rules := convert.DefaultRules()
			for i, file := range files {
				fmt.Printf("\nFile %d: %s\n", i+1, filepath.Base(file))
				meta, err := convert.ExtractMetadata(file)
				if err != nil {
					fmt.Printf("  unreadable: %v\n", err)
					continue
				}
				fmt.Printf("  Series Description: %s\n", orNA(meta.SeriesDescription))
				fmt.Printf("  Series Number: %d\n", meta.SeriesNumber)
				fmt.Printf("  Modality: %s\n", orNA(meta.Modality))
				fmt.Printf("  Protocol: %s\n", orNA(meta.ProtocolName))
				fmt.Printf("  Echo Time: %.1f ms\n", meta.EchoTime)
				fmt.Printf("  Repetition Time: %.1f ms\n", meta.RepetitionTime)
				fmt.Printf("  Classified as: %s\n", rules.Classify(meta))
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file or directory to inspect")
	pf.Int("limit", 10, "Max files to inspect when given a directory")

	return cmd
}

// collectSliceFiles returns path itself for a file, or the first limit
// recognized slice files under it for a directory
func collectSliceFiles(path string, limit int) ([]string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		for _, want := range convert.DefaultExtensions {
			if ext == want {
				files = append(files, p)
				break
			}
		}
		if len(files) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
