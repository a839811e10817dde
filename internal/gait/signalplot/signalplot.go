// Package signalplot renders the smoothed quadrant-energy signals of a
// finished analysis as PNG line plots for offline review.
package signalplot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gait.report/internal/gait"
)

var seriesColors = map[string]color.Color{
	"left":   color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	"right":  color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	"top":    color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	"bottom": color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
}

// New builds a plot of s against time. fps converts sample index to
// seconds; a non-positive fps plots against the sample index.
func New(title string, s *gait.Signals, fps float64) (*plot.Plot, error) {
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("%w: no signals to plot", gait.ErrInsufficientData)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Motion energy (fraction)"
	if fps > 0 {
		p.X.Label.Text = "Time (s)"
	} else {
		p.X.Label.Text = "Sample"
		fps = 1
	}

	for _, series := range []struct {
		name string
		ys   []float64
	}{
		{"left", s.Left}, {"right", s.Right}, {"top", s.Top}, {"bottom", s.Bottom},
	} {
		pts := xys(series.ys, fps)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s line: %w", series.name, err)
		}
		line.Color = seriesColors[series.name]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// xys drops non-finite samples; plotter rejects NaN.
func xys(ys []float64, fps float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(ys))
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i) / fps, Y: y})
	}
	return pts
}

// WritePNG renders the plot of s to w.
func WritePNG(w io.Writer, title string, s *gait.Signals, fps float64) error {
	p, err := New(title, s, fps)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes <dir>/<name>_signals.png and returns its path.
func Save(dir, name string, s *gait.Signals, fps float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plot dir: %w", err)
	}
	p, err := New(name+" - quadrant energy", s, fps)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"_signals.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	return path, nil
}
