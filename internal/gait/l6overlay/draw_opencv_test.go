//go:build opencv
// +build opencv

package l6overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/banshee-data/gait.report/internal/gait"
)

func checkerboard(w, h, cell int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

func TestCornerDetectorBounded(t *testing.T) {
	d, err := NewDetector(DefaultOptions())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	corners, err := d.Corners(checkerboard(200, 200, 25))
	if err != nil {
		t.Fatalf("Corners: %v", err)
	}
	if len(corners) == 0 || len(corners) > 20 {
		t.Fatalf("got %d corners, want 1..20", len(corners))
	}
}

func TestRendererEncodesJPEG(t *testing.T) {
	r, err := NewRenderer(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	frame := checkerboard(120, 80, 10)
	out, err := r.Render(frame, &gait.BoundingBox{X: 10, Y: 10, W: 50, H: 40},
		[]gait.OverlayPoint{{X: 0.5, Y: 0.5, Color: gait.MarkerColor}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("size = %v", img.Bounds())
	}
}
