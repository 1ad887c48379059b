package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/fsutil"
	"github.com/polyglotops/crossbench/pkg/report"
	"github.com/polyglotops/crossbench/pkg/results"
)

var (
	reportResultsDir string
	reportMetric     string
	reportFormat     string
	reportOutput     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a cross-language comparison report",
	Long: `Load saved results and render per-benchmark metric rankings as text
or HTML. Without --output the report goes to stdout.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportResultsDir, "results-dir", "",
		"Results directory (defaults to the configured one)")
	reportCmd.Flags().StringVar(&reportMetric, "metric", "",
		"Limit the report to one metric, any producer spelling")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text",
		"Report format (text or html)")
	reportCmd.Flags().StringVar(&reportOutput, "output", "",
		"Write the report to this file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "text" && reportFormat != "html" {
		return fmt.Errorf("unsupported format %q (use \"text\" or \"html\")", reportFormat)
	}

	table, owner, err := loadTable(reportResultsDir, reportMetric)
	if err != nil {
		return err
	}

	summary := results.SummaryOfRows(table.Rows)

	var w io.Writer = os.Stdout

	if reportOutput != "" {
		f, err := fsutil.Create(reportOutput, owner)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}

		defer func() { _ = f.Close() }()

		w = f
	}

	switch reportFormat {
	case "html":
		err = report.WriteHTML(w, table, summary)
	default:
		err = report.WriteText(w, table, summary)
	}

	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if reportOutput != "" {
		log.WithField("path", reportOutput).Info("Wrote report")
	}

	return nil
}

// loadTable loads the artifacts from the results directory and projects
// them, optionally narrowed to a single metric column.
func loadTable(resultsDir, metric string) (*results.Table, *fsutil.Owner, error) {
	dir, owner, err := resolveResultsDir(resultsDir)
	if err != nil {
		return nil, nil, err
	}

	normalizer := results.NewNormalizer(log)
	if err := normalizer.Load(dir, results.ArtifactPattern); err != nil {
		return nil, nil, fmt.Errorf("loading results: %w", err)
	}

	table := normalizer.Project()

	if metric != "" {
		table = filterMetric(table, metric)
	}

	return table, owner, nil
}

// filterMetric narrows the table to a single metric column. An unknown
// metric leaves no columns, which renders as an empty report rather
// than an error.
func filterMetric(table *results.Table, metric string) *results.Table {
	ck := results.CanonicalMetricKey(metric)

	filtered := &results.Table{Rows: table.Rows}

	for _, c := range table.Columns {
		if c == ck {
			filtered.Columns = []string{c}

			break
		}
	}

	return filtered
}
