package io

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images", "projects", "risk", "chart.png")

	require.NoError(t, WriteFileAtomic(path, []byte("chart bytes")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chart bytes", string(got))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestWriteFileAtomic_DirIsAFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := WriteFileAtomic(filepath.Join(blocker, "chart.png"), []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output directory")
}

type brokenSource struct{ err error }

func (b brokenSource) WriteTo(io.Writer) (int64, error) { return 0, b.err }

func TestWriteToAtomic_SourceErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.png")
	boom := errors.New("encode failed")

	err := WriteToAtomic(path, brokenSource{err: boom})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
