package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/polyglotops/crossbench/pkg/analysis"
	"github.com/polyglotops/crossbench/pkg/results"
)

// barWidth is the width of the relative-performance bar in text output.
const barWidth = 20

// lowerBetterHints marks canonical key substrings where smaller values
// win the ranking.
var lowerBetterHints = []string{"duration", "latency", "time", "memory", "cpuusage"}

// HigherIsBetter reports the ranking direction for a metric name.
// Throughput-style metrics rank descending; durations, latencies, and
// resource footprints rank ascending.
func HigherIsBetter(metric string) bool {
	ck := results.CanonicalMetricKey(metric)

	for _, hint := range lowerBetterHints {
		if strings.Contains(ck, hint) {
			return false
		}
	}

	return true
}

type metricSection struct {
	metric   string
	higher   bool
	rankings []*analysis.Ranking
}

type benchmarkSection struct {
	id      string
	metrics []*metricSection
	winner  string
	wins    int
}

// buildSections projects the table into per-benchmark ranking sections.
// Benchmarks keep their first-seen order sorted by id; metrics follow
// the table's column order. A benchmark's winner is the language with
// the most first places across its metrics, ties broken by name.
func buildSections(table *results.Table) []*benchmarkSection {
	seen := make(map[string]struct{})
	ids := make([]string, 0)

	for _, row := range table.Rows {
		if _, ok := seen[row.BenchmarkID]; !ok {
			seen[row.BenchmarkID] = struct{}{}

			ids = append(ids, row.BenchmarkID)
		}
	}

	sort.Strings(ids)

	sections := make([]*benchmarkSection, 0, len(ids))

	for _, id := range ids {
		sec := &benchmarkSection{id: id}

		for _, col := range table.Columns {
			higher := HigherIsBetter(col)

			rankings := analysis.Rank(table, id, col, higher)
			if len(rankings) == 0 {
				continue
			}

			sec.metrics = append(sec.metrics, &metricSection{
				metric:   col,
				higher:   higher,
				rankings: rankings,
			})
		}

		wins := make(map[string]int)
		for _, m := range sec.metrics {
			wins[m.rankings[0].Language]++
		}

		for lang, n := range wins {
			if n > sec.wins || (n == sec.wins && lang < sec.winner) {
				sec.winner = lang
				sec.wins = n
			}
		}

		sections = append(sections, sec)
	}

	return sections
}

// score converts a ranking into a 0..100 share of the best result. For
// ascending metrics the inverse ratio is used, so the best entry is
// always 100.
func score(r *analysis.Ranking, higher bool) float64 {
	if higher {
		return r.RelativeToBest
	}

	if r.RelativeToBest > 0 {
		return 100 * 100 / r.RelativeToBest
	}

	return 0
}

func bar(score float64) string {
	n := int(math.Round(score / 100 * barWidth))

	if n < 0 {
		n = 0
	}

	if n > barWidth {
		n = barWidth
	}

	return strings.Repeat("#", n)
}

// WriteText renders the ranked console report. The summary section is
// omitted when summary is nil.
func WriteText(w io.Writer, table *results.Table, summary *results.Summary) error {
	var sb strings.Builder

	sb.Grow(4096)

	sb.WriteString("CROSS-LANGUAGE BENCHMARK REPORT\n")
	sb.WriteString("===============================\n\n")

	if summary != nil {
		fmt.Fprintf(&sb, "Runs: %d total, %d successful, %d failed, %d skipped, %d timed out (%.1f%% success)\n\n",
			summary.TotalBenchmarks, summary.Successful, summary.Failed,
			summary.Skipped, summary.Timeout, summary.SuccessRate)
	}

	sections := buildSections(table)

	if len(sections) == 0 {
		sb.WriteString("No results to report.\n")
	}

	for _, b := range sections {
		writeBenchmarkText(&sb, b)
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func writeBenchmarkText(sb *strings.Builder, b *benchmarkSection) {
	fmt.Fprintf(sb, "Benchmark: %s\n", b.id)

	for _, m := range b.metrics {
		direction := "higher is better"
		if !m.higher {
			direction = "lower is better"
		}

		fmt.Fprintf(sb, "  %s (%s)\n", m.metric, direction)

		for _, r := range m.rankings {
			s := score(r, m.higher)
			fmt.Fprintf(sb, "    %d. %-10s %14.2f  %-*s %6.2f%%\n",
				r.Rank, r.Language, r.Value, barWidth, bar(s), s)
		}

		sb.WriteByte('\n')
	}

	if b.winner != "" {
		fmt.Fprintf(sb, "  Best overall: %s (%d/%d metrics)\n\n", b.winner, b.wins, len(b.metrics))
	}
}
