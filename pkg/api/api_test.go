package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/polyglotops/crossbench/pkg/api/indexer"
	"github.com/polyglotops/crossbench/pkg/api/indexstore"
	"github.com/polyglotops/crossbench/pkg/api/storage"
	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/results"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

// newTestServer builds a server around an in-memory index seeded with
// two batches and returns its router for httptest-driven requests.
func newTestServer(t *testing.T, cfg *config.APIConfig) (*server, http.Handler) {
	t.Helper()

	if cfg == nil {
		cfg = &config.APIConfig{}
	}

	cfg.Database = config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}

	store := indexstore.NewStore(testLogger(), &cfg.Database)
	require.NoError(t, store.Start(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, store.Stop())
	})

	dir := t.TempDir()
	reader := storage.NewLocalReader(&config.LocalStorageConfig{Dir: dir})

	s := &server{
		log:     testLogger(),
		cfg:     cfg,
		store:   store,
		reader:  reader,
		indexer: indexer.NewIndexer(testLogger(), store, reader, time.Minute, 1),
		done:    make(chan struct{}),
	}

	t.Cleanup(func() {
		close(s.done)
	})

	return s, s.buildRouter()
}

func seedIndex(t *testing.T, store indexstore.Store) {
	t.Helper()

	first := &results.RunBatch{
		Timestamp: "2024-01-01T12:00:00Z",
		Results: []*results.RunResult{
			{
				BenchmarkID: "fib",
				Language:    "go",
				Status:      results.StatusSuccess,
				Metrics:     map[string]float64{"Throughput": 27548.3},
			},
			{
				BenchmarkID: "fib",
				Language:    "python",
				Status:      results.StatusSuccess,
				Metrics:     map[string]float64{"throughput": 2.1},
			},
		},
		Summary: &results.Summary{TotalBenchmarks: 2, Successful: 2, SuccessRate: 100},
	}

	second := &results.RunBatch{
		Timestamp: "2024-01-02T12:00:00Z",
		Results: []*results.RunResult{
			{
				BenchmarkID: "sort",
				Language:    "rust",
				Status:      results.StatusFailed,
				Errors:      "build failed",
			},
		},
		Summary: &results.Summary{TotalBenchmarks: 1, Failed: 1},
	}

	_, err := store.UpsertBatch(context.Background(), "results_20240101_120000.json", first)
	require.NoError(t, err)

	_, err = store.UpsertBatch(context.Background(), "results_20240102_120000.json", second)
	require.NoError(t, err)
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleListBatches(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/batches")
	require.Equal(t, http.StatusOK, rec.Code)

	var body batchListResponse
	decodeBody(t, rec, &body)

	require.Equal(t, int64(2), body.Total)
	require.Len(t, body.Batches, 2)

	// Newest first.
	assert.Equal(t, "results_20240102_120000.json", body.Batches[0].StorageKey)
}

func TestHandleListBatches_Pagination(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/batches?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body batchListResponse
	decodeBody(t, rec, &body)

	require.Equal(t, int64(2), body.Total)
	require.Len(t, body.Batches, 1)
	assert.Equal(t, "results_20240101_120000.json", body.Batches[0].StorageKey)
}

func TestHandleLatestBatch(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/batches/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var batch indexstore.Batch
	decodeBody(t, rec, &batch)
	assert.Equal(t, "results_20240102_120000.json", batch.StorageKey)
}

func TestHandleLatestBatch_EmptyIndex(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/batches/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetBatch(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/batches/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var batch indexstore.Batch
	decodeBody(t, rec, &batch)
	assert.Equal(t, uint(1), batch.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/batches/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/batches/notanumber")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListRuns_Filters(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/runs?language=go")
	require.Equal(t, http.StatusOK, rec.Code)

	var body runListResponse
	decodeBody(t, rec, &body)

	require.Equal(t, 1, body.Count)
	assert.Equal(t, "fib", body.Runs[0].BenchmarkID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/runs?status=failed")
	decodeBody(t, rec, &body)

	require.Equal(t, 1, body.Count)
	assert.Equal(t, "rust", body.Runs[0].Language)
}

func TestHandleListRuns_InlinesMetrics(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/runs?language=python")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []struct {
			Metrics map[string]float64 `json:"metrics"`
		} `json:"runs"`
	}
	decodeBody(t, rec, &body)

	require.Len(t, body.Runs, 1)
	assert.InDelta(t, 2.1, body.Runs[0].Metrics["throughput"], 0.0001)
}

func TestHandleListBenchmarks(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/benchmarks")
	require.Equal(t, http.StatusOK, rec.Code)

	var body benchmarkListResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, []string{"fib", "sort"}, body.Benchmarks)
	assert.Equal(t, []string{"go", "python", "rust"}, body.Languages)
}

func TestHandleCompare(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	// Different producer spellings land on the same canonical metric.
	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/compare?benchmark=fib&metric=Throughput")
	require.Equal(t, http.StatusOK, rec.Code)

	var body compareResponse
	decodeBody(t, rec, &body)

	require.Len(t, body.Languages, 2)
	assert.Equal(t, "go", body.Languages[0].Language)
	assert.Equal(t, "python", body.Languages[1].Language)
	assert.InDelta(t, 27548.3, body.Languages[0].Stats.Mean, 0.001)
}

func TestHandleCompare_MissingParams(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/compare?benchmark=fib")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompare_UnknownMetric(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/compare?benchmark=fib&metric=nosuchmetric")
	require.Equal(t, http.StatusOK, rec.Code)

	var body compareResponse
	decodeBody(t, rec, &body)
	assert.Empty(t, body.Languages)
}

func TestHandleRank(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/rank?benchmark=fib&metric=throughput")
	require.Equal(t, http.StatusOK, rec.Code)

	var body rankResponse
	decodeBody(t, rec, &body)

	require.True(t, body.HigherIsBetter)
	require.Len(t, body.Rankings, 2)
	assert.Equal(t, "go", body.Rankings[0].Language)
	assert.InDelta(t, 100.0, body.Rankings[0].RelativeToBest, 0.001)
	assert.Equal(t, "python", body.Rankings[1].Language)

	// The distant second survives as a tiny percentage, not zero.
	assert.Greater(t, body.Rankings[1].RelativeToBest, 0.0)
	assert.Less(t, body.Rankings[1].RelativeToBest, 0.1)
}

func TestHandleRank_DirectionOverride(t *testing.T) {
	s, router := newTestServer(t, nil)
	seedIndex(t, s.store)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/rank?benchmark=fib&metric=throughput&higher=false")
	require.Equal(t, http.StatusOK, rec.Code)

	var body rankResponse
	decodeBody(t, rec, &body)

	require.False(t, body.HigherIsBetter)
	assert.Equal(t, "python", body.Rankings[0].Language)
}

func TestAdminReindex_RequiresAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.APIConfig{
		Admin: config.AdminConfig{
			Username:       "admin",
			PasswordBcrypt: string(hash),
		},
	}

	_, router := newTestServer(t, cfg)

	// No credentials.
	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/reindex")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong password.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct credentials run a pass against empty storage.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil)
	req.SetBasicAuth("admin", "sekrit")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_DisabledWithoutCredential(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/reindex")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.APIConfig{
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   2,
		},
	}

	s, router := newTestServer(t, cfg)
	seedIndex(t, s.store)

	var limited bool

	for i := 0; i < 5; i++ {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/batches")
		if rec.Code == http.StatusTooManyRequests {
			limited = true

			break
		}
	}

	assert.True(t, limited, "expected a request to be rate limited")
}
