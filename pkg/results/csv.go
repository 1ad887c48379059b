package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/polyglotops/crossbench/pkg/fsutil"
)

// ExportCSV writes the table with identity columns first and one
// metric_ prefixed column per canonical metric key. Missing metric
// values are left as empty cells rather than zeros.
func ExportCSV(table *Table, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		"benchmark_id",
		"benchmark_name",
		"language",
		"program_type",
		"data_mechanism",
		"status",
		"timestamp",
		"duration",
	}

	for _, col := range table.Columns {
		header = append(header, "metric_"+col)
	}

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, row := range table.Rows {
		record := []string{
			row.BenchmarkID,
			row.BenchmarkName,
			row.Language,
			row.ProgramType,
			row.DataMechanism,
			row.Status,
			row.Timestamp,
			strconv.FormatFloat(row.Duration, 'f', -1, 64),
		}

		for _, col := range table.Columns {
			if v, ok := row.Metrics[col]; ok {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

// WriteCSVFile exports the table to path, creating parent directories
// as needed.
func WriteCSVFile(table *Table, path string, owner *fsutil.Owner) error {
	if err := fsutil.MkdirAll(filepath.Dir(path), 0o755, owner); err != nil {
		return fmt.Errorf("creating csv directory: %w", err)
	}

	f, err := fsutil.Create(path, owner)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer f.Close()

	if err := ExportCSV(table, f); err != nil {
		return err
	}

	return nil
}
