package convert

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// DefaultSampleLimit bounds how many discovered files are opened for
// metadata during grouping. Series membership beyond the limit is not
// recorded; this is a deliberate runtime/completeness tradeoff carried
// over from the original pipeline and adjustable via configuration.
const DefaultSampleLimit = 500

// DefaultExtensions are the recognized slice file extensions
var DefaultExtensions = []string{".dcm", ".dicom", ".ima"}

// SeriesGroup is one discovered series: its member files, the metadata
// of the first file encountered, and a sample path for downstream
// heuristics. Groups are only created for files whose header parsed, so
// a group always has at least one file.
type SeriesGroup struct {
	Key        string
	Files      []string
	Meta       SliceMetadata
	SampleFile string
}

// seriesKey builds the grouping key: zero-padded series number plus the
// first 50 characters of the series description.
func seriesKey(meta SliceMetadata) string {
	return fmt.Sprintf("%04d_%s", meta.SeriesNumber, truncateRunes(meta.SeriesDescription, 50))
}

// DiscoverSeries walks root recursively, extracts header metadata from
// up to sampleLimit recognized files, and partitions them into series.
// Files whose header cannot be read are logged and skipped; they belong
// to no group.
func DiscoverSeries(ctx context.Context, root string, exts []string, sampleLimit int) (map[string]*SeriesGroup, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range exts {
			if ext == want {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	slog.InfoContext(ctx, "discovered slice files", "root", root, "count", len(files))

	groups := make(map[string]*SeriesGroup)
	sampled := files
	if len(sampled) > sampleLimit {
		sampled = sampled[:sampleLimit]
	}

	for i, path := range sampled {
		if i > 0 && i%100 == 0 {
			slog.DebugContext(ctx, "grouping progress", "analyzed", i, "of", len(sampled))
		}
		meta, err := ExtractMetadata(path)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable file", "path", path, "error", err)
			continue
		}

		key := seriesKey(meta)
		group, ok := groups[key]
		if !ok {
			group = &SeriesGroup{
				Key:        key,
				Meta:       meta,
				SampleFile: path,
			}
			groups[key] = group
		}
		group.Files = append(group.Files, path)
	}

	slog.InfoContext(ctx, "series discovery complete", "series", len(groups), "analyzed", len(sampled))
	return groups, nil
}
