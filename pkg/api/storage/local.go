package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/polyglotops/crossbench/pkg/config"
)

// Compile-time interface check.
var _ Reader = (*localReader)(nil)

type localReader struct {
	dir string
}

// NewLocalReader creates a Reader backed by a local directory.
func NewLocalReader(cfg *config.LocalStorageConfig) Reader {
	return &localReader{dir: cfg.Dir}
}

// ListKeys returns the file names in the artifacts directory. A missing
// directory reads as empty, since the first run may not have happened
// yet.
func (r *localReader) ListKeys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading artifacts directory: %w", err)
	}

	keys := make([]string, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() {
			keys = append(keys, e.Name())
		}
	}

	return keys, nil
}

// Get reads one artifact file. Returns (nil, nil) when absent.
func (r *localReader) Get(_ context.Context, key string) ([]byte, error) {
	p := filepath.Join(r.dir, key)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading file %s: %w", p, err)
	}

	return data, nil
}
