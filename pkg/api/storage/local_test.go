package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglotops/crossbench/pkg/config"
)

func TestLocalReader_ListKeys(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "results_a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "latest.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	r := NewLocalReader(&config.LocalStorageConfig{Dir: dir})

	keys, err := r.ListKeys(context.Background())
	require.NoError(t, err)

	// Files only; directories are not artifacts.
	assert.Equal(t, []string{"latest.json", "results_a.json"}, keys)
}

func TestLocalReader_ListKeysMissingDir(t *testing.T) {
	r := NewLocalReader(&config.LocalStorageConfig{
		Dir: filepath.Join(t.TempDir(), "never-created"),
	})

	keys, err := r.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestLocalReader_Get(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results_a.json"), []byte(`{"results": []}`), 0o644))

	r := NewLocalReader(&config.LocalStorageConfig{Dir: dir})

	data, err := r.Get(context.Background(), "results_a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"results": []}`, string(data))

	// Absent keys read as nil without an error.
	data, err = r.Get(context.Background(), "results_missing.json")
	require.NoError(t, err)
	assert.Nil(t, data)
}
