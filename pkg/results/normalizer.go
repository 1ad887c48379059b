package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Normalizer loads persisted artifacts back into memory and projects
// them into a flat table with a reconciled metric namespace.
type Normalizer interface {
	// Load scans dir for artifacts matching pattern and replaces the
	// loaded record set. The latest pointer is excluded so batches are
	// not counted twice. Unreadable or unparseable artifacts are skipped
	// with a warning; they never abort the load.
	Load(dir, pattern string) error

	// Count reports how many records the last Load produced.
	Count() int

	// Project flattens the loaded records into a table whose metric
	// columns are the union of canonical keys across all records.
	Project() *Table
}

// Row is the flattened projection of one result record. Metrics holds
// canonical keys only; a key absent from the map marks a missing value,
// never a zero.
type Row struct {
	BenchmarkID   string
	BenchmarkName string
	Language      string
	ProgramType   string
	DataMechanism string
	Duration      float64
	Timestamp     string
	Status        string
	Metrics       map[string]float64
}

// Metric returns the value for a metric under any producer spelling.
// The bool reports whether the row carries the metric at all.
func (r *Row) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[CanonicalMetricKey(name)]

	return v, ok
}

// Table is the normalized projection of all loaded records. Columns is
// the sorted union of canonical metric keys; individual rows may be
// missing any of them.
type Table struct {
	Columns []string
	Rows    []*Row
}

// CanonicalMetricKey folds a producer-spelled metric name onto the
// shared namespace: lowercase with underscores, hyphens, and spaces
// removed. Throughput, throughput, and syscall-rate vs syscall_rate all
// land on the same column.
func CanonicalMetricKey(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(name) {
		switch r {
		case '_', '-', ' ':
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// rawRecord mirrors the persisted result shape with metrics kept loose,
// since foreign artifacts may carry non-numeric values.
type rawRecord struct {
	BenchmarkID   string         `json:"benchmark_id"`
	BenchmarkName string         `json:"benchmark_name"`
	Language      string         `json:"language"`
	ProgramType   string         `json:"program_type"`
	DataMechanism string         `json:"data_mechanism"`
	Duration      float64        `json:"duration"`
	Timestamp     string         `json:"timestamp"`
	Status        string         `json:"status"`
	Metrics       map[string]any `json:"metrics"`
}

type normalizer struct {
	log     logrus.FieldLogger
	records []*rawRecord
}

var _ Normalizer = (*normalizer)(nil)

// NewNormalizer creates an empty normalizer.
func NewNormalizer(log logrus.FieldLogger) Normalizer {
	return &normalizer{
		log: log.WithField("component", "normalizer"),
	}
}

func (n *normalizer) Load(dir, pattern string) error {
	if pattern == "" {
		pattern = ArtifactPattern
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("globbing artifacts: %w", err)
	}

	// Replace rather than append, so repeated loads over unchanged
	// storage converge on the same record set.
	records := make([]*rawRecord, 0, len(matches))

	for _, path := range matches {
		if filepath.Base(path) == LatestArtifact {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			n.log.WithError(err).WithField("file", path).Warn("Skipping unreadable artifact")

			continue
		}

		recs, err := decodeArtifact(data)
		if err != nil {
			n.log.WithError(err).WithField("file", path).Warn("Skipping unparseable artifact")

			continue
		}

		records = append(records, recs...)
	}

	n.records = records

	n.log.WithFields(logrus.Fields{
		"dir":     dir,
		"records": len(records),
	}).Info("Loaded result records")

	return nil
}

func (n *normalizer) Count() int {
	return len(n.records)
}

func (n *normalizer) Project() *Table {
	columnSet := make(map[string]struct{})
	rows := make([]*Row, 0, len(n.records))

	for _, rec := range n.records {
		metrics := make(map[string]float64, len(rec.Metrics))

		// Walk keys in sorted order so colliding spellings within one
		// record resolve the same way on every projection.
		keys := make([]string, 0, len(rec.Metrics))
		for k := range rec.Metrics {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			f, ok := rec.Metrics[k].(float64)
			if !ok {
				continue
			}

			ck := CanonicalMetricKey(k)
			metrics[ck] = f
			columnSet[ck] = struct{}{}
		}

		rows = append(rows, &Row{
			BenchmarkID:   rec.BenchmarkID,
			BenchmarkName: rec.BenchmarkName,
			Language:      rec.Language,
			ProgramType:   rec.ProgramType,
			DataMechanism: rec.DataMechanism,
			Duration:      rec.Duration,
			Timestamp:     rec.Timestamp,
			Status:        rec.Status,
			Metrics:       metrics,
		})
	}

	columns := make([]string, 0, len(columnSet))
	for c := range columnSet {
		columns = append(columns, c)
	}

	sort.Strings(columns)

	return &Table{
		Columns: columns,
		Rows:    rows,
	}
}

// SummaryOfRows derives batch-style counts from projected rows, for
// reports rendered from loaded artifacts rather than a live batch.
func SummaryOfRows(rows []*Row) *Summary {
	s := &Summary{
		TotalBenchmarks: len(rows),
	}

	for _, r := range rows {
		switch Status(r.Status) {
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

// decodeArtifact accepts either a batch document carrying a results list
// or a bare single-result document.
func decodeArtifact(data []byte) ([]*rawRecord, error) {
	var probe struct {
		Results []json.RawMessage `json:"results"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}

	if probe.Results == nil {
		var rec rawRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding result record: %w", err)
		}

		return []*rawRecord{&rec}, nil
	}

	records := make([]*rawRecord, 0, len(probe.Results))

	for i, raw := range probe.Results {
		var rec rawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding result record %d: %w", i, err)
		}

		records = append(records, &rec)
	}

	return records, nil
}
