package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverSeries_Partition(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		writeSliceFile(t, filepath.Join(dir, fmt.Sprintf("t2_%d.dcm", i)), sliceFixture{
			SeriesNumber: 1, Description: "ax t2 tse", Instance: i,
		})
	}
	for i := 1; i <= 2; i++ {
		writeSliceFile(t, filepath.Join(dir, fmt.Sprintf("t1_%d.dcm", i)), sliceFixture{
			SeriesNumber: 2, Description: "sag t1", Instance: i,
		})
	}
	// Non-DICOM extension is ignored entirely
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not imaging"), 0644))

	groups, err := DiscoverSeries(context.Background(), dir, nil, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	t2, ok := groups["0001_ax t2 tse"]
	require.True(t, ok)
	assert.Len(t, t2.Files, 3)
	assert.Equal(t, "ax t2 tse", t2.Meta.SeriesDescription)
	assert.NotEmpty(t, t2.SampleFile)

	t1, ok := groups["0002_sag t1"]
	require.True(t, ok)
	assert.Len(t, t1.Files, 2)

	// Each file belongs to exactly one group
	seen := map[string]bool{}
	for _, g := range groups {
		for _, f := range g.Files {
			assert.False(t, seen[f], "file %s appears in two groups", f)
			seen[f] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestSeriesKey_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 60)
	key := seriesKey(SliceMetadata{SeriesNumber: 7, SeriesDescription: long})
	assert.Equal(t, "0007_"+long[:50], key)

	key = seriesKey(SliceMetadata{SeriesNumber: 12, SeriesDescription: "short"})
	assert.Equal(t, "0012_short", key)

	// Multi-byte descriptions truncate on rune boundaries
	key = seriesKey(SliceMetadata{SeriesNumber: 3, SeriesDescription: strings.Repeat("é", 60)})
	assert.Equal(t, "0003_"+strings.Repeat("é", 50), key)
	assert.True(t, utf8.ValidString(key))
}

func TestDiscoverSeries_SampleLimit(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 6; i++ {
		writeSliceFile(t, filepath.Join(dir, fmt.Sprintf("slice_%d.dcm", i)), sliceFixture{
			SeriesNumber: 1, Description: "ax t2", Instance: i,
		})
	}

	groups, err := DiscoverSeries(context.Background(), dir, nil, 3)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	total := 0
	for _, g := range groups {
		total += len(g.Files)
	}
	assert.Equal(t, 3, total, "membership beyond the sample limit is not recorded")
}

func TestDiscoverSeries_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeSliceFile(t, filepath.Join(dir, "good_1.dcm"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 1,
	})
	writeSliceFile(t, filepath.Join(dir, "good_2.dcm"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 2,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.dcm"), []byte("garbage"), 0644))

	groups, err := DiscoverSeries(context.Background(), dir, nil, 0)
	require.NoError(t, err, "one bad file must not fail the run")
	require.Len(t, groups, 1)
	for _, g := range groups {
		assert.Len(t, g.Files, 2)
	}
}

func TestDiscoverSeries_UnreadableSubdir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind root")
	}

	dir := t.TempDir()
	writeSliceFile(t, filepath.Join(dir, "good.dcm"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 1,
	})
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.MkdirAll(locked, 0755))
	writeSliceFile(t, filepath.Join(locked, "hidden.dcm"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 2,
	})
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	groups, err := DiscoverSeries(context.Background(), dir, nil, 0)
	require.NoError(t, err, "an unreadable subdirectory must not abort discovery")
	require.Len(t, groups, 1)
	for _, g := range groups {
		assert.Len(t, g.Files, 1)
	}
}

func TestDiscoverSeries_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeSliceFile(t, filepath.Join(dir, "slice.ima"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 1,
	})
	writeSliceFile(t, filepath.Join(dir, "slice.dcm"), sliceFixture{
		SeriesNumber: 1, Description: "ax t2", Instance: 2,
	})

	groups, err := DiscoverSeries(context.Background(), dir, []string{".ima"}, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	for _, g := range groups {
		require.Len(t, g.Files, 1)
		assert.Equal(t, ".ima", filepath.Ext(g.Files[0]))
	}
}

func TestDiscoverSeries_EmptyTree(t *testing.T) {
	groups, err := DiscoverSeries(context.Background(), t.TempDir(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
