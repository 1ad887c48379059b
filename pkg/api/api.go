package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/api/indexer"
	"github.com/polyglotops/crossbench/pkg/api/indexstore"
	"github.com/polyglotops/crossbench/pkg/api/storage"
	"github.com/polyglotops/crossbench/pkg/config"
)

const (
	shutdownTimeout         = 10 * time.Second
	defaultIndexingInterval = 60 * time.Second
)

// Server exposes the results API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	resultsDir string
	store      indexstore.Store
	reader     storage.Reader
	indexer    indexer.Indexer
	httpServer *http.Server
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewServer creates a new results API server. resultsDir is the local
// artifact directory used when no storage backend is configured.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	resultsDir string,
) Server {
	return &server{
		log:        log.WithField("component", "api"),
		cfg:        cfg,
		resultsDir: resultsDir,
		done:       make(chan struct{}),
	}
}

// Start opens the index store, builds the router, and starts the HTTP
// server. The background indexer is started last so the API is already
// reachable while the first (potentially slow) pass runs.
func (s *server) Start(ctx context.Context) error {
	if err := s.prepareIndexing(ctx); err != nil {
		return fmt.Errorf("preparing indexing: %w", err)
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	if err := s.indexer.Start(ctx); err != nil {
		return fmt.Errorf("starting indexer: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server, then the indexer, then
// the index store.
func (s *server) Stop() error {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.indexer != nil {
		if err := s.indexer.Stop(); err != nil {
			s.log.WithError(err).Warn("Indexer stop error")
		}
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping index store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// prepareIndexing creates the storage reader, index store, and indexer
// without starting the background goroutine.
func (s *server) prepareIndexing(ctx context.Context) error {
	switch {
	case s.cfg.Storage.S3 != nil:
		s.reader = storage.NewS3Reader(s.cfg.Storage.S3)
	case s.cfg.Storage.Local != nil:
		s.reader = storage.NewLocalReader(s.cfg.Storage.Local)
	default:
		// Fall back to the local results directory the runner writes to.
		s.reader = storage.NewLocalReader(&config.LocalStorageConfig{
			Dir: s.resultsDir,
		})
	}

	s.store = indexstore.NewStore(s.log, &s.cfg.Database)

	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting index store: %w", err)
	}

	interval := defaultIndexingInterval

	if s.cfg.Indexing.Interval != "" {
		d, err := time.ParseDuration(s.cfg.Indexing.Interval)
		if err != nil {
			return fmt.Errorf("parsing indexing interval: %w", err)
		}

		interval = d
	}

	s.indexer = indexer.NewIndexer(
		s.log, s.store, s.reader, interval, s.cfg.Indexing.Concurrency,
	)

	return nil
}
