package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/polyglotops/crossbench/pkg/results"
)

// WriteCharts renders one bar chart per benchmark metric into a single
// page, languages on the x axis and the per-language mean as the bar.
func WriteCharts(w io.Writer, table *results.Table) error {
	page := components.NewPage()

	for _, b := range buildSections(table) {
		for _, m := range b.metrics {
			page.AddCharts(buildBar(b.id, m))
		}
	}

	return page.Render(w)
}

func buildBar(benchmarkID string, m *metricSection) *charts.Bar {
	bar := charts.NewBar()

	direction := "higher is better"
	if !m.higher {
		direction = "lower is better"
	}

	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s / %s", benchmarkID, m.metric),
			Subtitle: direction,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	langs := make([]string, 0, len(m.rankings))
	data := make([]opts.BarData, 0, len(m.rankings))

	for _, r := range m.rankings {
		langs = append(langs, r.Language)
		data = append(data, opts.BarData{Value: r.Value})
	}

	bar.SetXAxis(langs).AddSeries(m.metric, data)

	return bar
}
