package ui

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/summary"
)

var barColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// RenderImportanceChart draws the top features as a horizontal bar chart
// (highest score on top) and returns PNG bytes.
func RenderImportanceChart(features []summary.TopFeature) ([]byte, error) {
	if len(features) == 0 {
		return nil, errors.New("no top features to plot")
	}

	n := len(features)
	values := make(plotter.Values, n)
	names := make([]string, n)
	// y=0 が一番下なので逆順に並べる
	for i, f := range features {
		values[n-1-i] = f.Score
		names[n-1-i] = f.Name
	}

	p := plot.New()
	p.Title.Text = "Top feature importances"
	p.X.Label.Text = "importance"

	bars, err := plotter.NewBarChart(values, vg.Points(16))
	if err != nil {
		return nil, errors.Wrap(err, "bar chart")
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	height := vg.Length(n)*0.4*vg.Inch + 1.2*vg.Inch
	wt, err := p.WriterTo(6*vg.Inch, height, "png")
	if err != nil {
		return nil, errors.Wrap(err, "png canvas")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
