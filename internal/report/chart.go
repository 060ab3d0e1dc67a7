package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/treevolume/internal/batch"
	"github.com/banshee-data/treevolume/internal/units"
)

// WriteChartHTML renders a bar chart of per-file volumes. Failed files are
// left out of the chart.
func WriteChartHTML(w io.Writer, results []batch.FileResult, unit string) error {
	var names []string
	var data []opts.BarData
	for _, r := range sortedByName(results) {
		if r.Err != nil {
			continue
		}
		names = append(names, r.Filename)
		data = append(data, opts.BarData{Value: units.ConvertVolume(r.Volume, unit)})
	}
	if len(data) == 0 {
		return ErrNoVolumes
	}

	s := batch.Summarize(results)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tree volumes", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Tree volumes",
			Subtitle: fmt.Sprintf("%d trees, %d failed, total %.3f %s", s.Succeeded, s.Failed, units.ConvertVolume(s.TotalVolume, unit), units.Label(unit)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "File", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(unit)}),
	)
	bar.SetXAxis(names).AddSeries("volume", data)

	return bar.Render(w)
}
