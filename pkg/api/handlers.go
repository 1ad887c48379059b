package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/polyglotops/crossbench/pkg/analysis"
	"github.com/polyglotops/crossbench/pkg/api/indexstore"
	"github.com/polyglotops/crossbench/pkg/report"
	"github.com/polyglotops/crossbench/pkg/results"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxRunLimit     = 1000
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type batchListResponse struct {
	Batches []indexstore.Batch `json:"batches"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// handleListBatches returns indexed batches, newest first, paged via
// limit/offset query parameters.
func (s *server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	batches, total, err := s.store.ListBatches(r.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("Failed to list batches")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing batches"})

		return
	}

	writeJSON(w, http.StatusOK, batchListResponse{
		Batches: batches,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleLatestBatch returns the most recent indexed batch.
func (s *server) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.store.LatestBatch(r.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"no batches indexed yet"})

			return
		}

		s.log.WithError(err).Error("Failed to get latest batch")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting latest batch"})

		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// handleGetBatch returns a single batch by ID.
func (s *server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	batch, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"batch not found"})

			return
		}

		s.log.WithError(err).Error("Failed to get batch")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting batch"})

		return
	}

	writeJSON(w, http.StatusOK, batch)
}

type runListResponse struct {
	Runs  []indexstore.Run `json:"runs"`
	Count int              `json:"count"`
}

// handleListRuns returns indexed runs filtered by batch, benchmark,
// language, and status query parameters.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", maxRunLimit)
	if limit < 1 || limit > maxRunLimit {
		limit = maxRunLimit
	}

	filter := &indexstore.RunFilter{
		BatchID:     uint(queryInt(r, "batch", 0)),
		BenchmarkID: r.URL.Query().Get("benchmark"),
		Language:    r.URL.Query().Get("language"),
		Status:      r.URL.Query().Get("status"),
		Limit:       limit,
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs"})

		return
	}

	writeJSON(w, http.StatusOK, runListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

type benchmarkListResponse struct {
	Benchmarks []string `json:"benchmarks"`
	Languages  []string `json:"languages"`
}

// handleListBenchmarks returns the distinct benchmark IDs and languages
// present in the index.
func (s *server) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListBenchmarkIDs(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list benchmarks")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing benchmarks"})

		return
	}

	langs, err := s.store.ListLanguages(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list languages")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing languages"})

		return
	}

	writeJSON(w, http.StatusOK, benchmarkListResponse{
		Benchmarks: ids,
		Languages:  langs,
	})
}

type compareResponse struct {
	Benchmark string                    `json:"benchmark"`
	Metric    string                    `json:"metric"`
	Languages []*analysis.LanguageStats `json:"languages"`
}

// handleCompare computes per-language statistics for one metric of one
// benchmark across everything currently indexed.
func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	benchmark := r.URL.Query().Get("benchmark")
	metric := r.URL.Query().Get("metric")

	if benchmark == "" || metric == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"benchmark and metric are required"})

		return
	}

	table, err := s.tableForBenchmark(r.Context(), benchmark)
	if err != nil {
		s.log.WithError(err).Error("Failed to build comparison table")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"building comparison"})

		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		Benchmark: benchmark,
		Metric:    metric,
		Languages: analysis.Compare(table, benchmark, metric),
	})
}

type rankResponse struct {
	Benchmark      string              `json:"benchmark"`
	Metric         string              `json:"metric"`
	HigherIsBetter bool                `json:"higher_is_better"`
	Rankings       []*analysis.Ranking `json:"rankings"`
}

// handleRank ranks languages by their mean for one metric of one
// benchmark. Direction defaults to a name-based heuristic and can be
// forced with ?higher=true|false.
func (s *server) handleRank(w http.ResponseWriter, r *http.Request) {
	benchmark := r.URL.Query().Get("benchmark")
	metric := r.URL.Query().Get("metric")

	if benchmark == "" || metric == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"benchmark and metric are required"})

		return
	}

	higher := report.HigherIsBetter(metric)

	if v := r.URL.Query().Get("higher"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"higher must be true or false"})

			return
		}

		higher = parsed
	}

	table, err := s.tableForBenchmark(r.Context(), benchmark)
	if err != nil {
		s.log.WithError(err).Error("Failed to build ranking table")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"building ranking"})

		return
	}

	writeJSON(w, http.StatusOK, rankResponse{
		Benchmark:      benchmark,
		Metric:         metric,
		HigherIsBetter: higher,
		Rankings:       analysis.Rank(table, benchmark, metric, higher),
	})
}

// tableForBenchmark reconstructs a normalized result table from the
// indexed runs of one benchmark so the analysis functions can run over
// live index data.
func (s *server) tableForBenchmark(
	ctx context.Context, benchmarkID string,
) (*results.Table, error) {
	runs, err := s.store.ListRuns(ctx, &indexstore.RunFilter{
		BenchmarkID: benchmarkID,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]*results.Row, 0, len(runs))

	for i := range runs {
		run := &runs[i]
		raw := run.MetricsMap()

		// Walk keys in sorted order so colliding spellings resolve the
		// same way on every request.
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		metrics := make(map[string]float64, len(raw))
		for _, k := range keys {
			metrics[results.CanonicalMetricKey(k)] = raw[k]
		}

		rows = append(rows, &results.Row{
			BenchmarkID:   run.BenchmarkID,
			BenchmarkName: run.BenchmarkName,
			Language:      run.Language,
			ProgramType:   run.ProgramType,
			DataMechanism: run.DataMechanism,
			Duration:      run.Duration,
			Timestamp:     run.Timestamp,
			Status:        run.Status,
			Metrics:       metrics,
		})
	}

	return &results.Table{Rows: rows}, nil
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

// parseIDParam parses the {id} URL parameter as an unsigned integer.
func parseIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}

	return uint(id), nil
}
