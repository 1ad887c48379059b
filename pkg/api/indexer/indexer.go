package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/polyglotops/crossbench/pkg/api/indexstore"
	"github.com/polyglotops/crossbench/pkg/api/storage"
	"github.com/polyglotops/crossbench/pkg/results"
)

// defaultConcurrency is the number of artifacts indexed in parallel
// when no explicit concurrency value is configured.
const defaultConcurrency = 4

// Indexer is a background service that periodically scans artifact
// storage and upserts result batches into the index store.
type Indexer interface {
	Start(ctx context.Context) error
	Stop() error

	// RunPass executes one indexing pass synchronously.
	RunPass(ctx context.Context) error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log         logrus.FieldLogger
	store       indexstore.Store
	reader      storage.Reader
	interval    time.Duration
	concurrency int
	done        chan struct{}
	wg          sync.WaitGroup
	dbMu        sync.Mutex // serializes DB writes to avoid SQLite contention
}

// NewIndexer creates a new background indexer.
func NewIndexer(
	log logrus.FieldLogger,
	store indexstore.Store,
	reader storage.Reader,
	interval time.Duration,
	concurrency int,
) Indexer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &indexer{
		log:         log.WithField("component", "indexer"),
		store:       store,
		reader:      reader,
		interval:    interval,
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

// Start launches a background goroutine that runs an immediate indexing
// pass and then ticks at the configured interval. The first pass is
// asynchronous so the API server is not blocked waiting for it.
func (idx *indexer) Start(ctx context.Context) error {
	idx.log.WithFields(logrus.Fields{
		"interval":    idx.interval.String(),
		"concurrency": idx.concurrency,
	}).Info("Starting indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		if err := idx.RunPass(ctx); err != nil {
			idx.log.WithError(err).Warn("Indexing pass failed")
		}

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := idx.RunPass(ctx); err != nil {
					idx.log.WithError(err).Warn("Indexing pass failed")
				}
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the indexer goroutine to stop and waits for it to exit.
func (idx *indexer) Stop() error {
	close(idx.done)
	idx.wg.Wait()

	idx.log.Info("Indexer stopped")

	return nil
}

// RunPass indexes every artifact present in storage but absent from the
// index. Artifacts are immutable once written, so already-indexed keys
// are never re-read; the mutable latest pointer is excluded entirely.
func (idx *indexer) RunPass(ctx context.Context) error {
	start := time.Now()

	keys, err := idx.reader.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing storage artifacts: %w", err)
	}

	indexedKeys, err := idx.store.ListIndexedKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing indexed keys: %w", err)
	}

	indexedSet := make(map[string]struct{}, len(indexedKeys))
	for _, k := range indexedKeys {
		indexedSet[k] = struct{}{}
	}

	var tasks []string

	for _, k := range keys {
		if !isArtifactKey(k) {
			continue
		}

		if _, ok := indexedSet[k]; ok {
			continue
		}

		tasks = append(tasks, k)
	}

	idx.log.WithFields(logrus.Fields{
		"storage_artifacts": len(keys),
		"indexed":           len(indexedKeys),
		"new":               len(tasks),
	}).Debug("Indexing pass started")

	if len(tasks) == 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	var indexed atomic.Int64

	for _, key := range tasks {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-idx.done:
				return nil
			default:
			}

			if err := idx.indexArtifact(gCtx, key); err != nil {
				idx.log.WithError(err).
					WithField("key", key).
					Warn("Failed to index artifact")

				return nil //nolint:nilerr // log and continue
			}

			indexed.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexing artifacts: %w", err)
	}

	idx.log.WithFields(logrus.Fields{
		"indexed":  indexed.Load(),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Indexing pass completed")

	return nil
}

func (idx *indexer) indexArtifact(ctx context.Context, key string) error {
	data, err := idx.reader.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}

	if data == nil {
		return fmt.Errorf("artifact %s vanished between list and read", key)
	}

	var batch results.RunBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("decoding artifact: %w", err)
	}

	idx.dbMu.Lock()
	defer idx.dbMu.Unlock()

	if _, err := idx.store.UpsertBatch(ctx, key, &batch); err != nil {
		return fmt.Errorf("upserting batch: %w", err)
	}

	return nil
}

// isArtifactKey reports whether a storage key names a timestamped
// results artifact.
func isArtifactKey(key string) bool {
	if key == results.LatestArtifact {
		return false
	}

	ok, err := path.Match(results.ArtifactPattern, key)

	return err == nil && ok
}
