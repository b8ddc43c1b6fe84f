// Package chart renders the subscriber time series to a PNG.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotEnoughData is returned when fewer than two snapshots are available;
// a line chart needs at least two points.
var ErrNotEnoughData = errors.New("not enough data points to render chart")

// Point is one plotted observation: subscriber count on a day of month.
type Point struct {
	Day   int
	Count int64
}

// Render writes a PNG subscriber chart for the given points to w. Points are
// plotted in the order given.
func Render(w io.Writer, points []Point) error {
	if len(points) < 2 {
		return ErrNotEnoughData
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Day)
		ys[i] = float64(p.Count)
	}

	graph := chart.Chart{
		Title: "Subscribers over the past month",
		XAxis: chart.XAxis{
			Name:           "Day",
			ValueFormatter: chart.IntValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Subscribers",
			ValueFormatter: chart.IntValueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: drawing.ColorRed,
					StrokeWidth: 2.0,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	return graph.Render(chart.PNG, w)
}

// RenderToTempFile renders the chart into a temporary PNG file and returns
// its path together with a cleanup function that removes the file. The
// cleanup is safe to defer regardless of what happens to the file afterwards.
func RenderToTempFile(points []Point) (string, func(), error) {
	f, err := os.CreateTemp("", "subs_plot_*.png")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create chart file: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if err := Render(f, points); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}

	return path, cleanup, nil
}
