package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/polyglotops/crossbench/pkg/analysis"
	"github.com/polyglotops/crossbench/pkg/results"
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>crossbench report</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
td.lang, th.lang { text-align: left; }
h2 { margin-top: 1.5em; }
.direction { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Cross-Language Benchmark Report</h1>
{{- if .Summary}}
<p>{{.Summary.TotalBenchmarks}} runs: {{.Summary.Successful}} successful, {{.Summary.Failed}} failed, {{.Summary.Skipped}} skipped, {{.Summary.Timeout}} timed out ({{printf "%.1f" .Summary.SuccessRate}}% success)</p>
{{- end}}
{{- range .Benchmarks}}
<h2>{{.ID}}</h2>
{{- range .Metrics}}
<h3>{{.Name}} <span class="direction">({{.Direction}})</span></h3>
<table>
<tr><th>#</th><th class="lang">Language</th><th>Value</th><th>vs best</th></tr>
{{- range .Rankings}}
<tr><td>{{.Rank}}</td><td class="lang">{{.Language}}</td><td>{{printf "%.2f" .Value}}</td><td>{{printf "%.2f" .RelativeToBest}}%</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Winner}}
<p>Best overall: <strong>{{.Winner}}</strong></p>
{{- end}}
{{- end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Parse(htmlTemplate))

type htmlMetric struct {
	Name      string
	Direction string
	Rankings  []*analysis.Ranking
}

type htmlBenchmark struct {
	ID      string
	Winner  string
	Metrics []*htmlMetric
}

type htmlData struct {
	Summary    *results.Summary
	Benchmarks []*htmlBenchmark
}

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, table *results.Table, summary *results.Summary) error {
	data := &htmlData{Summary: summary}

	for _, b := range buildSections(table) {
		hb := &htmlBenchmark{ID: b.id, Winner: b.winner}

		for _, m := range b.metrics {
			direction := "higher is better"
			if !m.higher {
				direction = "lower is better"
			}

			hb.Metrics = append(hb.Metrics, &htmlMetric{
				Name:      m.metric,
				Direction: direction,
				Rankings:  m.rankings,
			})
		}

		data.Benchmarks = append(data.Benchmarks, hb)
	}

	if err := htmlTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}

	return nil
}
