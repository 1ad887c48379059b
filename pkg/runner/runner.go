package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/executor"
	"github.com/polyglotops/crossbench/pkg/lang"
	"github.com/polyglotops/crossbench/pkg/results"
	"github.com/polyglotops/crossbench/pkg/sysmetrics"
)

// Runner orchestrates the benchmark suite: the cross product of
// configured benchmarks and their languages, executed sequentially so
// runs never contend with each other for the machine.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error

	// RunAll executes every selected (benchmark, language) pair and
	// persists the batch. The batch is returned even when the run was
	// interrupted; the error then reports the interruption.
	RunAll(ctx context.Context) (*results.RunBatch, error)
}

// Config for the runner.
type Config struct {
	ConfigFile      string
	SourceDir       string
	BenchmarkFilter string
	LanguageFilter  string
}

// NewRunner creates a new runner instance.
func NewRunner(
	log logrus.FieldLogger,
	cfg *Config,
	benchmarks []config.BenchmarkSpec,
	exec executor.Executor,
	store results.Store,
) Runner {
	return &runner{
		log:        log.WithField("component", "runner"),
		cfg:        cfg,
		benchmarks: benchmarks,
		executor:   exec,
		store:      store,
	}
}

type runner struct {
	log        logrus.FieldLogger
	cfg        *Config
	benchmarks []config.BenchmarkSpec
	executor   executor.Executor
	store      results.Store
}

// Ensure interface compliance.
var _ Runner = (*runner)(nil)

// Start validates the environment before any benchmark runs.
func (r *runner) Start(_ context.Context) error {
	if _, err := os.Stat(r.cfg.SourceDir); err != nil {
		return fmt.Errorf("source directory %s: %w", r.cfg.SourceDir, err)
	}

	r.log.Debug("Runner started")

	return nil
}

// Stop cleans up the runner.
func (r *runner) Stop() error {
	r.log.Debug("Runner stopped")

	return nil
}

// pair is one cell of the benchmark x language matrix.
type pair struct {
	spec     *config.BenchmarkSpec
	language lang.Language
}

// selectPairs applies the id and language filters. Both filters are
// exact matches.
func (r *runner) selectPairs() []pair {
	pairs := make([]pair, 0)

	for i := range r.benchmarks {
		b := &r.benchmarks[i]

		if r.cfg.BenchmarkFilter != "" && b.ID != r.cfg.BenchmarkFilter {
			continue
		}

		for _, l := range b.Languages {
			if r.cfg.LanguageFilter != "" && l != r.cfg.LanguageFilter {
				continue
			}

			pairs = append(pairs, pair{spec: b, language: lang.Language(l)})
		}
	}

	return pairs
}

func (r *runner) RunAll(ctx context.Context) (*results.RunBatch, error) {
	pairs := r.selectPairs()

	if len(pairs) == 0 {
		r.log.Warn("No benchmarks matched the configured filters")
	}

	r.log.WithField("pairs", len(pairs)).Info("Starting benchmark suite")

	runResults := make([]*results.RunResult, 0, len(pairs))

	var interrupted bool

	for i, p := range pairs {
		if ctx.Err() != nil {
			r.log.Warn("Interrupted, saving partial results")

			interrupted = true

			break
		}

		r.log.WithFields(logrus.Fields{
			"benchmark": p.spec.ID,
			"language":  string(p.language),
			"progress":  fmt.Sprintf("%d/%d", i+1, len(pairs)),
		}).Info("Executing benchmark")

		res := r.executor.Execute(ctx, p.spec, p.language)
		runResults = append(runResults, res)

		switch res.Status {
		case results.StatusSuccess:
			r.log.WithFields(logrus.Fields{
				"benchmark": res.BenchmarkID,
				"language":  res.Language,
				"metrics":   len(res.Metrics),
			}).Info("Benchmark succeeded")
		default:
			r.log.WithFields(logrus.Fields{
				"benchmark": res.BenchmarkID,
				"language":  res.Language,
				"status":    string(res.Status),
				"errors":    res.Errors,
			}).Warn("Benchmark did not succeed")
		}
	}

	host := sysmetrics.CollectHostInfo(r.log)
	batch := results.NewRunBatch(r.cfg.ConfigFile, host, runResults)

	if _, err := r.store.SaveBatch(batch); err != nil {
		return nil, fmt.Errorf("saving results: %w", err)
	}

	r.logSummary(batch.Summary)

	if interrupted {
		return batch, ctx.Err()
	}

	return batch, nil
}

func (r *runner) logSummary(s *results.Summary) {
	r.log.WithFields(logrus.Fields{
		"total":        s.TotalBenchmarks,
		"successful":   s.Successful,
		"failed":       s.Failed,
		"skipped":      s.Skipped,
		"timeout":      s.Timeout,
		"success_rate": fmt.Sprintf("%.1f%%", s.SuccessRate),
	}).Info("Benchmark suite complete")
}
