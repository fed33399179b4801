package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yml")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	// overwrite is atomic and leaves no temp files behind
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0o644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFileMissingDirectory(t *testing.T) {
	err := AtomicWriteFile(filepath.Join(t.TempDir(), "missing", "state.yml"), []byte("x"), 0o644)
	require.Error(t, err)
}
