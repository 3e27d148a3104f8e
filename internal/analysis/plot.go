package analysis

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a series has nothing to draw.
var ErrNoData = errors.New("series has no values")

// RenderSeriesPNG draws a numeric series as a line chart, row position on X.
func RenderSeriesPNG(w io.Writer, name string, s Series) error {
	if len(s.Y) == 0 || len(s.X) != len(s.Y) {
		return ErrNoData
	}
	xs := make([]float64, len(s.X))
	for i, x := range s.X {
		xs[i] = float64(x)
	}
	graph := chart.Chart{
		Title:  name,
		Width:  960,
		Height: 420,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: "row", Range: padRange(xs)},
		YAxis: chart.YAxis{Name: name, Range: padRange(s.Y)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    name,
				XValues: xs,
				YValues: s.Y,
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					StrokeWidth: 2,
					DotColor:    drawing.ColorBlue,
					DotWidth:    3,
				},
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", name, err)
	}
	return nil
}

// padRange widens a degenerate (single value) range so the axis can be drawn.
func padRange(vals []float64) *chart.ContinuousRange {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
