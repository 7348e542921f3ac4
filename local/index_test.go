package local

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-mind/flocons/fs"
)

func TestIndexAddThenGet(t *testing.T) {
	dir := t.TempDir()
	idx := NewRegularFileIndex(filepath.Join(dir, "files_ctx_v0_0.csv"), indexLocal)
	defer idx.Close()

	entry := IndexEntry{Offset: 0, Size: 5, Mode: 0644, ModTime: time.Unix(1700000000, 0), Name: "a.txt"}
	require.NoError(t, idx.Add(entry))

	got, err := idx.Get("a.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Offset, got.Offset)
	assert.Equal(t, entry.Size, got.Size)
	assert.Equal(t, entry.Name, got.Name)
}

func TestIndexGetMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	idx := NewRegularFileIndex(filepath.Join(dir, "files_ctx_v0_0.csv"), indexLocal)
	defer idx.Close()

	got, err := idx.Get("nope.txt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIndexAddOnRemoteModeFails(t *testing.T) {
	dir := t.TempDir()
	idx := NewRegularFileIndex(filepath.Join(dir, "files_ctx_v0_0.csv"), indexRemote)
	defer idx.Close()

	err := idx.Add(IndexEntry{Name: "a.txt"})
	require.Error(t, err)
	assert.True(t, fs.IsLogic(err))
}

func TestIndexRefreshToleratesPartialTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files_ctx_v0_0.csv")

	complete := IndexEntry{Offset: 0, Size: 5, Mode: 0644, ModTime: time.Unix(1700000000, 0), Name: "a.txt"}
	content := complete.csvLine() + "100;5;644;1700000001;partial-no-newline"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	idx := NewRegularFileIndex(path, indexRemote)
	defer idx.Close()

	require.NoError(t, idx.Refresh())
	entries, err := idx.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)

	// Completing the partial line with a trailing newline and refreshing
	// again should now pick it up.
	require.NoError(t, os.WriteFile(path, []byte(content+"\n"), 0644))
	require.NoError(t, idx.Refresh())
	entries, err = idx.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIndexCsvLineRoundTrips(t *testing.T) {
	e := IndexEntry{Offset: 42, Size: 100, Mode: 0755, ModTime: time.Unix(1700000042, 0), Name: "b.bin"}
	line := e.csvLine()
	parsed, err := parseIndexLine(line)
	require.NoError(t, err)
	assert.Equal(t, e.Offset, parsed.Offset)
	assert.Equal(t, e.Size, parsed.Size)
	assert.Equal(t, e.Mode.Perm(), parsed.Mode.Perm())
	assert.Equal(t, e.ModTime.Unix(), parsed.ModTime.Unix())
	assert.Equal(t, e.Name, parsed.Name)
}

func TestParseIndexLineRejectsMalformed(t *testing.T) {
	_, err := parseIndexLine("not;enough\n")
	assert.Error(t, err)
}
