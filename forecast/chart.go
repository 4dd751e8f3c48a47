package forecast

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var predictedColor = color.RGBA{R: 220, A: 255}

// RenderChart draws the historical amounts as a line with markers plus the
// predicted point at the next position, and returns the PNG bytes.
func RenderChart(amounts []float64, prediction float64) ([]byte, error) {
	p := plot.New()
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Sales"
	p.Legend.Top = true

	past := make(plotter.XYs, len(amounts))
	for i, a := range amounts {
		past[i].X = float64(i)
		past[i].Y = a
	}
	line, points, err := plotter.NewLinePoints(past)
	if err != nil {
		return nil, fmt.Errorf("past sales series: %w", err)
	}
	points.Shape = draw.CircleGlyph{}

	predicted, err := plotter.NewScatter(plotter.XYs{{X: float64(len(amounts)), Y: prediction}})
	if err != nil {
		return nil, fmt.Errorf("predicted series: %w", err)
	}
	predicted.GlyphStyle.Color = predictedColor
	predicted.GlyphStyle.Shape = draw.CrossGlyph{}
	predicted.GlyphStyle.Radius = vg.Points(4)

	p.Add(line, points, predicted)
	p.Legend.Add("Past Sales", line, points)
	p.Legend.Add("Predicted", predicted)

	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
