package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jpfielding/dcm2nii.go/pkg/nifti"
	"github.com/jpfielding/dcm2nii.go/pkg/util"
)

// Result describes one successfully converted series
type Result struct {
	Filename     string         `json:"filename"`
	ScanType     ScanType       `json:"scan_type"`
	SeriesNumber int            `json:"series_number"`
	SeriesID     string         `json:"series_id"`
	Shape        [3]int         `json:"shape"`
	SourceFiles  int            `json:"original_files"`
	VoxelSize    [3]float64     `json:"voxel_size"`
	Intensity    IntensityStats `json:"intensity"`
}

// Failure records a series that could not be converted
type Failure struct {
	SeriesKey string `json:"series_key"`
	Reason    string `json:"reason"`
}

// Report is the batch summary written alongside the converted volumes
type Report struct {
	RunID       string           `json:"run_id"`
	Timestamp   time.Time        `json:"timestamp"`
	TotalSeries int              `json:"total_series"`
	ByType      map[ScanType]int `json:"summary_by_type"`
	Details     []Result         `json:"details"`
	Failures    []Failure        `json:"failures,omitempty"`
}

// WriteFile serializes the report as indented JSON
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Converter drives batch conversion of a directory tree
type Converter struct {
	cfg   *Config
	rules Rules
}

// NewConverter builds a Converter from configuration
func NewConverter(cfg *Config) (*Converter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rules, err := cfg.ClassifierRules()
	if err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, rules: rules}, nil
}

// Run converts every discoverable series under inputDir. One series'
// failure never aborts the batch; it is recorded in the report. Only
// an unusable output directory or an unwritable report is fatal.
func (c *Converter) Run(ctx context.Context, inputDir string) (*Report, error) {
	outputDir := c.cfg.Output.Dir
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(inputDir), "nifti_output")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	groups, err := DiscoverSeries(ctx, inputDir, c.cfg.Input.Extensions, c.cfg.Input.SampleLimit)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		ByType:    make(map[ScanType]int),
	}

	// Deterministic processing and report ordering
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group := groups[key]
		slog.InfoContext(ctx, "converting series", "series", key, "files", len(group.Files))

		result, err := c.convertSeries(ctx, group, outputDir)
		if err != nil {
			slog.WarnContext(ctx, "series conversion failed", "series", key, "error", err)
			report.Failures = append(report.Failures, Failure{SeriesKey: key, Reason: err.Error()})
			continue
		}

		report.Details = append(report.Details, result)
		report.ByType[result.ScanType]++
		report.TotalSeries++
	}

	reportPath := filepath.Join(outputDir, "conversion_report.json")
	if err := report.WriteFile(reportPath); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "batch complete",
		"converted", report.TotalSeries,
		"failed", len(report.Failures),
		"report", reportPath)
	return report, nil
}

// convertSeries classifies, sequences, assembles, and serializes one series
func (c *Converter) convertSeries(ctx context.Context, group *SeriesGroup, outputDir string) (Result, error) {
	scanType := c.rules.Classify(group.Meta)
	slog.DebugContext(ctx, "classified series", "series", group.Key, "type", scanType)

	slices, err := SequenceSlices(ctx, group.Files)
	if err != nil {
		return Result{}, err
	}

	vol, stats, err := AssembleVolume(ctx, slices, group.Meta)
	if err != nil {
		return Result{}, err
	}

	patientID := c.resolvePatientID(group)
	filename := outputFilename(patientID, scanType, group.Meta.SeriesNumber, group.Meta.SeriesDescription)

	// NIfTI x is the column axis of the row-major slice data, so the
	// in-plane spacings swap relative to the volume's (row, col) affine
	affine := vol.Affine
	affine[0][0], affine[1][1] = affine[1][1], affine[0][0]

	img := &nifti.Image{
		Nx:      vol.Cols,
		Ny:      vol.Rows,
		Nz:      vol.Slices,
		Affine:  affine,
		Data:    vol.Data,
		Descrip: fmt.Sprintf("%s S%d", scanType, group.Meta.SeriesNumber),
	}
	if err := nifti.WriteFile(filepath.Join(outputDir, filename), img); err != nil {
		return Result{}, fmt.Errorf("serializing volume: %w", err)
	}

	slog.InfoContext(ctx, "series converted",
		"file", filename,
		"type", scanType,
		"shape", vol.Shape(),
		"slices", len(slices))

	return Result{
		Filename:     filename,
		ScanType:     scanType,
		SeriesNumber: group.Meta.SeriesNumber,
		SeriesID:     util.HashUUID(group.Key),
		Shape:        vol.Shape(),
		SourceFiles:  len(group.Files),
		VoxelSize:    vol.VoxelSize(),
		Intensity:    stats,
	}, nil
}

// resolvePatientID picks the patient identifier for output naming:
// header value first, then the directory name two levels above the
// sample file, then a date-stamped placeholder.
func (c *Converter) resolvePatientID(group *SeriesGroup) string {
	id := group.Meta.PatientID
	if id != "" && id != "unknown" {
		return id
	}

	folder := filepath.Base(filepath.Dir(filepath.Dir(group.SampleFile)))
	if folder != "" && folder != "." && folder != string(filepath.Separator) {
		return folder
	}

	return "patient_" + time.Now().Format("20060102")
}
