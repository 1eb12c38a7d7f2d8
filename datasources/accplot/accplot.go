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

// Package accplot implements exports that chart the accuracy of each
// pair: a PNG image, and an interactive HTML page.
package accplot

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:        "plot",
		Title:       "Accuracy plot",
		Description: "A PNG chart of the accuracy of each pair and the average accuracy",
		NewExporter: func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}

	err = trail.RegisterDataSource(trail.DataSource{
		Name:        "plot_html",
		Title:       "Accuracy chart",
		Description: "An interactive HTML chart of the accuracy of each pair",
		NewExporter: func() trail.Exporter { return new(HTMLExporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// Size of the PNG image.
const (
	width  = 10 * vg.Inch
	height = 5 * vg.Inch
)

// errNoPairs is returned when there is nothing to chart.
var errNoPairs = errors.New("no pairs to chart")

var (
	recordedColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictedColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	averageColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Exporter writes a PNG chart.
type Exporter struct{}

// Export implements trail.Exporter. Nothing is written if the run
// has no pairs.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	if len(params.Run.Pairs) == 0 {
		if params.Log != nil {
			params.Log.Warn("not plotting accuracy", zap.Error(errNoPairs))
		}
		return nil
	}
	p, err := NewPlot(params.Run)
	if err != nil {
		return err
	}
	return params.WriteAll("Accuracy", ".png", func(w io.Writer) error {
		wt, err := p.WriterTo(width, height, "png")
		if err != nil {
			return err
		}
		_, err = wt.WriteTo(w)
		return err
	})
}

// NewPlot makes a scatter plot of the accuracy of each pair by its
// index, with predicted points in their own color, and a line at
// the average accuracy.
func NewPlot(run *trail.Run) (*plot.Plot, error) {
	if len(run.Pairs) == 0 {
		return nil, errNoPairs
	}

	var recorded, predicted plotter.XYs
	for _, pair := range run.Pairs {
		xy := plotter.XY{X: float64(pair.Index), Y: pair.AccuracySeconds()}
		if pair.Point.Predicted {
			predicted = append(predicted, xy)
		} else {
			recorded = append(recorded, xy)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: song-point accuracy", run.Name)
	p.X.Label.Text = "Pair"
	p.Y.Label.Text = "Accuracy (seconds)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"Recorded", recorded, recordedColor, draw.CircleGlyph{}},
		{"Predicted", predicted, predictedColor, draw.TriangleGlyph{}},
	} {
		if len(series.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(series.xys)
		if err != nil {
			return nil, fmt.Errorf("plotting %s points: %w", series.name, err)
		}
		s.GlyphStyle.Color = series.color
		s.GlyphStyle.Shape = series.shape
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(series.name, s)
	}

	avg := trail.MeanAccuracy(run.Pairs)
	first, last := run.Pairs[0].Index, run.Pairs[len(run.Pairs)-1].Index
	line, err := plotter.NewLine(plotter.XYs{
		{X: float64(first), Y: avg},
		{X: float64(last), Y: avg},
	})
	if err != nil {
		return nil, fmt.Errorf("plotting average: %w", err)
	}
	line.LineStyle.Color = averageColor
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("Average (%ds)", trail.AverageAccuracy(run.Pairs)), line)
	p.Legend.Top = true

	return p, nil
}
