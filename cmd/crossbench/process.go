package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/analysis"
	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/fsutil"
	"github.com/polyglotops/crossbench/pkg/report"
	"github.com/polyglotops/crossbench/pkg/results"
)

var (
	processResultsDir string
	processBenchmark  string
	processMetric     string
	processCSV        string
	processSummary    bool
	processCompare    bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Load saved results and analyze them",
	Long: `Load every results artifact from the results directory, project the
records into a normalized table, and optionally summarize, compare, or
export them.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processResultsDir, "results-dir", "",
		"Results directory (defaults to the configured one)")
	processCmd.Flags().StringVar(&processBenchmark, "benchmark", "",
		"Benchmark id for --compare")
	processCmd.Flags().StringVar(&processMetric, "metric", "",
		"Metric name for --compare, any producer spelling")
	processCmd.Flags().StringVar(&processCSV, "csv", "",
		"Write the normalized table to this CSV file")
	processCmd.Flags().BoolVar(&processSummary, "summary", false,
		"Print per-series statistics for every metric")
	processCmd.Flags().BoolVar(&processCompare, "compare", false,
		"Compare languages on one benchmark metric")
}

func runProcess(cmd *cobra.Command, args []string) error {
	dir, owner, err := resolveResultsDir(processResultsDir)
	if err != nil {
		return err
	}

	normalizer := results.NewNormalizer(log)
	if err := normalizer.Load(dir, results.ArtifactPattern); err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	if normalizer.Count() == 0 {
		log.WithField("dir", dir).Warn("No results found")

		return nil
	}

	table := normalizer.Project()

	fmt.Printf("Loaded %d results with %d metrics\n",
		len(table.Rows), len(table.Columns))

	if processCSV != "" {
		if err := results.WriteCSVFile(table, processCSV, owner); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}

		log.WithField("path", processCSV).Info("Wrote CSV export")
	}

	if processSummary {
		printSummary(table)
	}

	if processCompare {
		if processBenchmark == "" || processMetric == "" {
			return fmt.Errorf("--compare requires --benchmark and --metric")
		}

		printComparison(table, processBenchmark, processMetric)
	}

	return nil
}

func printSummary(table *results.Table) {
	fmt.Println()
	fmt.Println("Run summary:")

	for _, g := range analysis.SummarizeRuns(table) {
		fmt.Printf("  %s/%s: runs=%d status=%s duration mean=%.2fs min=%.2fs max=%.2fs\n",
			g.BenchmarkID, g.Language, g.Count, g.TopStatus,
			g.MeanDuration, g.MinDuration, g.MaxDuration)
	}

	fmt.Println()
	fmt.Println("Per-series statistics:")

	for _, s := range analysis.Summarize(table) {
		fmt.Printf("  %s/%s %s: mean=%.4f min=%.4f max=%.4f median=%.4f stddev=%.4f p95=%.4f (n=%d)\n",
			s.BenchmarkID, s.Language, s.Metric,
			s.Stats.Mean, s.Stats.Min, s.Stats.Max,
			s.Stats.Median, s.Stats.StdDev, s.Stats.P95, s.Stats.Count)
	}
}

func printComparison(table *results.Table, benchmark, metric string) {
	fmt.Println()
	fmt.Printf("Comparison for %s / %s:\n", benchmark, metric)

	stats := analysis.Compare(table, benchmark, metric)
	if len(stats) == 0 {
		fmt.Println("  no data for this benchmark metric")

		return
	}

	for _, s := range stats {
		fmt.Printf("  %-10s mean=%.4f median=%.4f stddev=%.4f (n=%d)\n",
			s.Language, s.Stats.Mean, s.Stats.Median, s.Stats.StdDev, s.Stats.Count)
	}

	higher := report.HigherIsBetter(metric)

	fmt.Println()
	fmt.Printf("Ranking (%s is better):\n", direction(higher))

	for _, r := range analysis.Rank(table, benchmark, metric, higher) {
		fmt.Printf("  %d. %-10s %14.4f  %6.2f%% of best\n",
			r.Rank, r.Language, r.Value, r.RelativeToBest)
	}
}

func direction(higher bool) string {
	if higher {
		return "higher"
	}

	return "lower"
}

// resolveResultsDir picks the flag value when given, otherwise falls
// back to the config file, otherwise the default. The config file is
// optional for read-only commands.
func resolveResultsDir(flagValue string) (string, *fsutil.Owner, error) {
	if flagValue != "" {
		return flagValue, nil, nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.DefaultResultsDir, nil, nil
	}

	owner, err := fsutil.ParseOwner(cfg.Global.Owner)
	if err != nil {
		return "", nil, fmt.Errorf("parsing owner: %w", err)
	}

	return cfg.Global.ResultsDir, owner, nil
}
