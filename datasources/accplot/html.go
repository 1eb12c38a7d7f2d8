/*
	Songtrail
	Copyright (c) 2024 Songtrail contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package accplot

import (
	"context"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

// HTMLExporter writes an interactive chart as an HTML page.
type HTMLExporter struct{}

// Export implements trail.Exporter. Nothing is written if the run
// has no pairs.
func (HTMLExporter) Export(_ context.Context, params trail.ExportParams) error {
	if len(params.Run.Pairs) == 0 {
		if params.Log != nil {
			params.Log.Warn("not charting accuracy", zap.Error(errNoPairs))
		}
		return nil
	}
	return params.WriteAll("Accuracy", ".html", func(w io.Writer) error {
		return WriteChart(w, params.Run)
	})
}

// WriteChart renders a scatter chart of the accuracy of each pair,
// named by song, with a mark line at the average.
func WriteChart(w io.Writer, run *trail.Run) error {
	if len(run.Pairs) == 0 {
		return errNoPairs
	}

	var recorded, predicted []opts.ScatterData
	for _, p := range run.Pairs {
		d := opts.ScatterData{
			Name:  fmt.Sprintf("[%d] %s", p.Index, p.Song.Title()),
			Value: []any{p.Index, p.AccuracySeconds()},
		}
		if p.Point.Predicted {
			predicted = append(predicted, d)
		} else {
			recorded = append(recorded, d)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: run.Name + " accuracy", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    run.Name,
			Subtitle: fmt.Sprintf("pairs=%d average=%ds", len(run.Pairs), trail.AverageAccuracy(run.Pairs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Pair", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Accuracy (s)", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("Recorded", recorded,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
		charts.WithMarkLineNameTypeItemOpts(opts.MarkLineNameTypeItem{Name: "Average", Type: "average", ValueDim: "y"}),
	)
	if len(predicted) > 0 {
		scatter.AddSeries("Predicted", predicted,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8, Symbol: "triangle"}))
	}

	return scatter.Render(w)
}
