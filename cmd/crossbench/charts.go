package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/fsutil"
	"github.com/polyglotops/crossbench/pkg/report"
)

const chartsFileName = "charts.html"

var (
	chartsResultsDir string
	chartsMetric     string
	chartsOutputDir  string
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render interactive comparison charts",
	Long: `Load saved results and render per-benchmark bar charts into a single
HTML page. The page is written into the output directory.`,
	RunE: runCharts,
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().StringVar(&chartsResultsDir, "results-dir", "",
		"Results directory (defaults to the configured one)")
	chartsCmd.Flags().StringVar(&chartsMetric, "metric", "",
		"Limit the charts to one metric, any producer spelling")
	chartsCmd.Flags().StringVar(&chartsOutputDir, "output-dir", "",
		"Directory for the chart page (defaults to the results directory)")
}

func runCharts(cmd *cobra.Command, args []string) error {
	table, owner, err := loadTable(chartsResultsDir, chartsMetric)
	if err != nil {
		return err
	}

	if len(table.Rows) == 0 {
		log.Warn("No results to chart")

		return nil
	}

	outDir := chartsOutputDir

	if outDir == "" {
		dir, _, err := resolveResultsDir(chartsResultsDir)
		if err != nil {
			return err
		}

		outDir = dir
	}

	if err := fsutil.MkdirAll(outDir, 0o755, owner); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outDir, chartsFileName)

	f, err := fsutil.Create(path, owner)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}

	defer func() { _ = f.Close() }()

	if err := report.WriteCharts(f, table); err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}

	log.WithField("path", path).Info("Wrote charts")

	return nil
}
