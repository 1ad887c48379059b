package indexstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/results"
)

// Store provides persistence for the indexed benchmark results.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// UpsertBatch indexes an artifact under its storage key, replacing
	// any runs previously indexed for that key. Indexing the same
	// artifact twice leaves exactly one copy.
	UpsertBatch(ctx context.Context, key string, batch *results.RunBatch) (*Batch, error)

	GetBatch(ctx context.Context, id uint) (*Batch, error)
	LatestBatch(ctx context.Context) (*Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]Batch, int64, error)
	ListIndexedKeys(ctx context.Context) ([]string, error)

	ListRuns(ctx context.Context, filter *RunFilter) ([]Run, error)
	ListBenchmarkIDs(ctx context.Context) ([]string, error)
	ListLanguages(ctx context.Context) ([]string, error)
}

// RunFilter narrows ListRuns. Zero-valued fields match everything.
type RunFilter struct {
	BatchID     uint
	BenchmarkID string
	Language    string
	Status      string
	Limit       int
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new index Store backed by the configured database
// driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "indexstore"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Batch{},
		&Run{},
	); err != nil {
		return fmt.Errorf("running index migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Index database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) UpsertBatch(
	ctx context.Context, key string, rb *results.RunBatch,
) (*Batch, error) {
	batch := &Batch{StorageKey: key}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Batch

		err := tx.Where("storage_key = ?", key).First(&existing).Error

		switch {
		case err == nil:
			batch.ID = existing.ID

			if err := tx.Where("batch_id = ?", existing.ID).
				Delete(&Run{}).Error; err != nil {
				return fmt.Errorf("clearing indexed runs: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("looking up batch: %w", err)
		}

		batch.Timestamp = rb.Timestamp
		batch.ConfigFile = rb.ConfigFile

		if rb.System != nil {
			batch.Hostname = rb.System.Hostname
			batch.Platform = rb.System.Platform
			batch.Arch = rb.System.Arch
		}

		if rb.Summary != nil {
			batch.TotalBenchmarks = rb.Summary.TotalBenchmarks
			batch.Successful = rb.Summary.Successful
			batch.Failed = rb.Summary.Failed
			batch.Skipped = rb.Summary.Skipped
			batch.Timeout = rb.Summary.Timeout
			batch.SuccessRate = rb.Summary.SuccessRate
		}

		batch.IndexedAt = time.Now().UTC()

		if err := tx.Save(batch).Error; err != nil {
			return fmt.Errorf("saving batch: %w", err)
		}

		for _, r := range rb.Results {
			metricsJSON, err := json.Marshal(r.Metrics)
			if err != nil {
				return fmt.Errorf("encoding metrics: %w", err)
			}

			run := &Run{
				BatchID:       batch.ID,
				BenchmarkID:   r.BenchmarkID,
				BenchmarkName: r.BenchmarkName,
				Language:      r.Language,
				ProgramType:   r.ProgramType,
				DataMechanism: r.DataMechanism,
				Duration:      r.Duration,
				Timestamp:     r.Timestamp,
				Status:        string(r.Status),
				MetricsJSON:   string(metricsJSON),
				Errors:        r.Errors,
				Warnings:      r.Warnings,
			}

			if err := tx.Create(run).Error; err != nil {
				return fmt.Errorf("indexing run: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func (s *store) GetBatch(ctx context.Context, id uint) (*Batch, error) {
	var batch Batch
	if err := s.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		return nil, fmt.Errorf("getting batch: %w", err)
	}

	return &batch, nil
}

func (s *store) LatestBatch(ctx context.Context) (*Batch, error) {
	var batch Batch
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		First(&batch).Error; err != nil {
		return nil, fmt.Errorf("getting latest batch: %w", err)
	}

	return &batch, nil
}

func (s *store) ListBatches(
	ctx context.Context, limit, offset int,
) ([]Batch, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&Batch{}).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting batches: %w", err)
	}

	q := s.db.WithContext(ctx).Order("timestamp DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if offset > 0 {
		q = q.Offset(offset)
	}

	var batches []Batch
	if err := q.Find(&batches).Error; err != nil {
		return nil, 0, fmt.Errorf("listing batches: %w", err)
	}

	return batches, total, nil
}

func (s *store) ListIndexedKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).
		Model(&Batch{}).
		Order("storage_key ASC").
		Pluck("storage_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("listing indexed keys: %w", err)
	}

	return keys, nil
}

func (s *store) ListRuns(
	ctx context.Context, filter *RunFilter,
) ([]Run, error) {
	q := s.db.WithContext(ctx).Order("id ASC")

	if filter != nil {
		if filter.BatchID != 0 {
			q = q.Where("batch_id = ?", filter.BatchID)
		}

		if filter.BenchmarkID != "" {
			q = q.Where("benchmark_id = ?", filter.BenchmarkID)
		}

		if filter.Language != "" {
			q = q.Where("language = ?", filter.Language)
		}

		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}

		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
	}

	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) ListBenchmarkIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Distinct("benchmark_id").
		Order("benchmark_id ASC").
		Pluck("benchmark_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing benchmark ids: %w", err)
	}

	return ids, nil
}

func (s *store) ListLanguages(ctx context.Context) ([]string, error) {
	var langs []string
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Distinct("language").
		Order("language ASC").
		Pluck("language", &langs).Error; err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}

	return langs, nil
}
