package analysis

import (
	"math"
	"sort"

	"github.com/polyglotops/crossbench/pkg/results"
)

// MetricStats describes the distribution of one metric series. StdDev
// is the sample standard deviation; it is zero for series shorter than
// two values.
type MetricStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// SeriesStats is the distribution of one metric across the runs of one
// (benchmark, language) series.
type SeriesStats struct {
	BenchmarkID string       `json:"benchmark_id"`
	Language    string       `json:"language"`
	Metric      string       `json:"metric"`
	Stats       *MetricStats `json:"stats"`
}

// LanguageStats pairs a language with its stats for one metric of one
// benchmark.
type LanguageStats struct {
	Language string       `json:"language"`
	Stats    *MetricStats `json:"stats"`
}

// RunSummary describes the runs of one (benchmark, language) pair across
// every loaded batch: how many there were, the status they most often
// ended in, and the spread of their durations.
type RunSummary struct {
	BenchmarkID  string  `json:"benchmark_id"`
	Language     string  `json:"language"`
	Count        int     `json:"count"`
	TopStatus    string  `json:"top_status"`
	MeanDuration float64 `json:"mean_duration"`
	MinDuration  float64 `json:"min_duration"`
	MaxDuration  float64 `json:"max_duration"`
}

// Ranking is one language's standing for a ranked benchmark metric.
// RelativeToBest expresses the language's mean as a percentage of the
// best mean, so a distant second shows up as a small number, not as a
// rounding artifact.
type Ranking struct {
	Rank           int     `json:"rank"`
	Language       string  `json:"language"`
	Value          float64 `json:"value"`
	RelativeToBest float64 `json:"relative_to_best"`
}

// DefaultPercentiles are the points Percentiles reports when the caller
// does not pick their own.
var DefaultPercentiles = []float64{50, 95, 99, 99.9}

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks. An empty series yields zero.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return percentileSorted(sorted, p)
}

// Percentiles computes the requested percentile points over values,
// falling back to DefaultPercentiles when ps is nil. An empty series
// yields an empty map, never zero-valued entries.
func Percentiles(values []float64, ps []float64) map[float64]float64 {
	out := make(map[float64]float64, len(ps))

	if len(values) == 0 {
		return out
	}

	if ps == nil {
		ps = DefaultPercentiles
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	for _, p := range ps {
		out[p] = percentileSorted(sorted, p)
	}

	return out
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}

	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))

	if lo == hi {
		return sorted[lo]
	}

	frac := idx - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func computeStats(values []float64) *MetricStats {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	mean := sum / float64(len(sorted))

	var variance float64

	if len(sorted) > 1 {
		for _, v := range sorted {
			d := v - mean
			variance += d * d
		}

		variance /= float64(len(sorted) - 1)
	}

	return &MetricStats{
		Count:  len(sorted),
		Mean:   mean,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: percentileSorted(sorted, 50),
		StdDev: math.Sqrt(variance),
		P95:    percentileSorted(sorted, 95),
		P99:    percentileSorted(sorted, 99),
	}
}

// collectSeries groups one benchmark metric's values by language. Rows
// that do not carry the metric contribute nothing; a missing value is
// excluded, never counted as zero.
func collectSeries(table *results.Table, benchmarkID, metric string) map[string][]float64 {
	ck := results.CanonicalMetricKey(metric)
	byLang := make(map[string][]float64)

	for _, row := range table.Rows {
		if row.BenchmarkID != benchmarkID {
			continue
		}

		v, ok := row.Metrics[ck]
		if !ok {
			continue
		}

		byLang[row.Language] = append(byLang[row.Language], v)
	}

	return byLang
}

// Summarize computes stats for every (benchmark, language, metric)
// series in the table, ordered by benchmark, language, then metric.
func Summarize(table *results.Table) []*SeriesStats {
	type seriesKey struct {
		benchmark string
		language  string
		metric    string
	}

	series := make(map[seriesKey][]float64)

	for _, row := range table.Rows {
		for m, v := range row.Metrics {
			k := seriesKey{benchmark: row.BenchmarkID, language: row.Language, metric: m}
			series[k] = append(series[k], v)
		}
	}

	keys := make([]seriesKey, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].benchmark != keys[j].benchmark {
			return keys[i].benchmark < keys[j].benchmark
		}

		if keys[i].language != keys[j].language {
			return keys[i].language < keys[j].language
		}

		return keys[i].metric < keys[j].metric
	})

	out := make([]*SeriesStats, 0, len(keys))

	for _, k := range keys {
		out = append(out, &SeriesStats{
			BenchmarkID: k.benchmark,
			Language:    k.language,
			Metric:      k.metric,
			Stats:       computeStats(series[k]),
		})
	}

	return out
}

// SummarizeRuns groups the table's rows by (benchmark, language) and
// reports the run count, the most frequent status, and duration
// statistics per group, ordered by benchmark then language. Status ties
// break on the status name.
func SummarizeRuns(table *results.Table) []*RunSummary {
	type groupKey struct {
		benchmark string
		language  string
	}

	type group struct {
		statuses  map[string]int
		durations []float64
	}

	groups := make(map[groupKey]*group)

	for _, row := range table.Rows {
		k := groupKey{benchmark: row.BenchmarkID, language: row.Language}

		g, ok := groups[k]
		if !ok {
			g = &group{statuses: make(map[string]int)}
			groups[k] = g
		}

		g.statuses[row.Status]++
		g.durations = append(g.durations, row.Duration)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].benchmark != keys[j].benchmark {
			return keys[i].benchmark < keys[j].benchmark
		}

		return keys[i].language < keys[j].language
	})

	out := make([]*RunSummary, 0, len(keys))

	for _, k := range keys {
		g := groups[k]

		var (
			top      string
			topCount int
		)

		for status, n := range g.statuses {
			if n > topCount || (n == topCount && status < top) {
				top = status
				topCount = n
			}
		}

		var sum, minDur, maxDur float64

		for i, d := range g.durations {
			sum += d

			if i == 0 || d < minDur {
				minDur = d
			}

			if i == 0 || d > maxDur {
				maxDur = d
			}
		}

		out = append(out, &RunSummary{
			BenchmarkID:  k.benchmark,
			Language:     k.language,
			Count:        len(g.durations),
			TopStatus:    top,
			MeanDuration: sum / float64(len(g.durations)),
			MinDuration:  minDur,
			MaxDuration:  maxDur,
		})
	}

	return out
}

// Compare returns per-language stats for one benchmark metric, ordered
// by language name. Languages with no values for the metric are absent.
func Compare(table *results.Table, benchmarkID, metric string) []*LanguageStats {
	byLang := collectSeries(table, benchmarkID, metric)

	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}

	sort.Strings(langs)

	out := make([]*LanguageStats, 0, len(langs))

	for _, l := range langs {
		out = append(out, &LanguageStats{
			Language: l,
			Stats:    computeStats(byLang[l]),
		})
	}

	return out
}

// Rank orders languages by their mean value for one benchmark metric.
// Ties break on language name so the order is stable across runs.
func Rank(table *results.Table, benchmarkID, metric string, higherIsBetter bool) []*Ranking {
	byLang := collectSeries(table, benchmarkID, metric)

	out := make([]*Ranking, 0, len(byLang))

	for l, values := range byLang {
		var sum float64
		for _, v := range values {
			sum += v
		}

		out = append(out, &Ranking{
			Language: l,
			Value:    sum / float64(len(values)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if higherIsBetter {
				return out[i].Value > out[j].Value
			}

			return out[i].Value < out[j].Value
		}

		return out[i].Language < out[j].Language
	})

	for i, r := range out {
		r.Rank = i + 1

		if best := out[0].Value; best != 0 {
			r.RelativeToBest = r.Value / best * 100
		}
	}

	return out
}
