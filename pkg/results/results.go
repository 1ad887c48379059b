package results

import (
	"time"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/sysmetrics"
)

// Status classifies the outcome of one benchmark execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusTimeout Status = "timeout"
)

// RunResult is one execution outcome for a (benchmark, language) pair.
// It is created once per execution and never mutated after the executor
// hands it back. Metric keys keep the producer's own spelling; they are
// reconciled to canonical keys at normalization time, not here.
type RunResult struct {
	BenchmarkID   string             `json:"benchmark_id"`
	BenchmarkName string             `json:"benchmark_name"`
	Language      string             `json:"language"`
	ProgramType   string             `json:"program_type"`
	DataMechanism string             `json:"data_mechanism"`
	Duration      float64            `json:"duration"`
	Timestamp     string             `json:"timestamp"`
	Status        Status             `json:"status"`
	Metrics       map[string]float64 `json:"metrics"`
	Errors        string             `json:"errors,omitempty"`
	Warnings      string             `json:"warnings,omitempty"`
}

// NewRunResult creates a result shell for one (benchmark, language) pair.
// The status starts as failed; the executor upgrades it once the outcome
// is known.
func NewRunResult(spec *config.BenchmarkSpec, language string) *RunResult {
	return &RunResult{
		BenchmarkID:   spec.ID,
		BenchmarkName: spec.Name,
		Language:      language,
		ProgramType:   spec.ProgramType,
		DataMechanism: spec.DataMechanism,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Status:        StatusFailed,
		Metrics:       make(map[string]float64),
	}
}

// Summary holds the derived counts for one batch. The four status counts
// always sum to the total; the success rate considers successes only.
type Summary struct {
	TotalBenchmarks int     `json:"total_benchmarks"`
	Successful      int     `json:"successful"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	Timeout         int     `json:"timeout"`
	SuccessRate     float64 `json:"success_rate"`
}

// BuildSummary derives the batch summary from a result list.
func BuildSummary(results []*RunResult) *Summary {
	s := &Summary{
		TotalBenchmarks: len(results),
	}

	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Successful++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusTimeout:
			s.Timeout++
		}
	}

	if s.TotalBenchmarks > 0 {
		s.SuccessRate = 100.0 * float64(s.Successful) / float64(s.TotalBenchmarks)
	}

	return s
}

// RunBatch is the aggregate of all results from one orchestrator
// invocation, persisted as a single artifact.
type RunBatch struct {
	Timestamp  string               `json:"timestamp"`
	ConfigFile string               `json:"config_file,omitempty"`
	System     *sysmetrics.HostInfo `json:"system,omitempty"`
	Results    []*RunResult         `json:"results"`
	Summary    *Summary             `json:"summary"`
}

// NewRunBatch assembles a batch with its derived summary.
func NewRunBatch(configFile string, system *sysmetrics.HostInfo, results []*RunResult) *RunBatch {
	return &RunBatch{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		ConfigFile: configFile,
		System:     system,
		Results:    results,
		Summary:    BuildSummary(results),
	}
}
