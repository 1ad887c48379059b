package results

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/fsutil"
)

const (
	// LatestArtifact is the fixed-name mirror of the most recent batch.
	LatestArtifact = "latest.json"

	// ArtifactPattern matches timestamped batch artifacts.
	ArtifactPattern = "results_*.json"
)

// Store persists run batches as JSON artifacts on local disk.
type Store interface {
	// SaveBatch writes the batch to a timestamped artifact and mirrors it
	// to the latest pointer. It returns the timestamped artifact path.
	SaveBatch(batch *RunBatch) (string, error)
}

// StoreConfig holds the artifact store settings.
type StoreConfig struct {
	ResultsDir string
	Owner      *fsutil.Owner
}

type localStore struct {
	log   logrus.FieldLogger
	dir   string
	owner *fsutil.Owner
}

var _ Store = (*localStore)(nil)

// NewStore creates a local filesystem artifact store.
func NewStore(log logrus.FieldLogger, cfg *StoreConfig) Store {
	return &localStore{
		log:   log.WithField("component", "results_store"),
		dir:   cfg.ResultsDir,
		owner: cfg.Owner,
	}
}

func (s *localStore) SaveBatch(batch *RunBatch) (string, error) {
	if err := fsutil.MkdirAll(s.dir, 0o755, s.owner); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling run batch: %w", err)
	}

	name := fmt.Sprintf("results_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	if err := fsutil.WriteFile(path, data, 0o644, s.owner); err != nil {
		return "", fmt.Errorf("writing results artifact: %w", err)
	}

	// The latest pointer is last-write-wins on purpose; readers that want
	// history glob the timestamped artifacts instead.
	latest := filepath.Join(s.dir, LatestArtifact)
	if err := fsutil.WriteFile(latest, data, 0o644, s.owner); err != nil {
		return "", fmt.Errorf("writing latest artifact: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"path":    path,
		"results": len(batch.Results),
	}).Info("Saved results batch")

	return path, nil
}
