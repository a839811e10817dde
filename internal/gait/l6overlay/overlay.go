package l6overlay

import (
	"encoding/base64"
	"image"
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// MaxOverlayPoints bounds the corner markers emitted per result.
const MaxOverlayPoints = 20

// Options configure corner detection and encoding.
type Options struct {
	MaxCorners  int
	Quality     float64
	MinDistance float64
	JPEGQuality int
}

// DefaultOptions returns up to 20 corners at quality 0.01, 18 px apart,
// encoded at JPEG quality 85.
func DefaultOptions() Options {
	return Options{MaxCorners: 20, Quality: 0.01, MinDistance: 18, JPEGQuality: 85}
}

// CornerLimit returns MaxCorners clamped to 1..MaxOverlayPoints. Zero or
// negative values mean the full allowance.
func (o Options) CornerLimit() int {
	if o.MaxCorners <= 0 || o.MaxCorners > MaxOverlayPoints {
		return MaxOverlayPoints
	}
	return o.MaxCorners
}

// Detector finds salient corners, in pixel coordinates.
type Detector interface {
	Corners(gray *image.Gray) ([][2]float64, error)
}

// Renderer draws the box and markers on a copy of frame and encodes the
// result. Points are in normalized coordinates.
type Renderer interface {
	Render(frame image.Image, box *gait.BoundingBox, points []gait.OverlayPoint) ([]byte, error)
}

// Normalize maps pixel (x, y) into [0,1]² for a w×h frame, clamping
// out-of-range values.
func Normalize(x, y float64, w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return clamp01(x / float64(w)), clamp01(y / float64(h))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Points converts pixel corners to overlay markers.
func Points(corners [][2]float64, w, h int) []gait.OverlayPoint {
	out := make([]gait.OverlayPoint, 0, len(corners))
	for _, c := range corners {
		x, y := Normalize(c[0], c[1], w, h)
		out = append(out, gait.OverlayPoint{X: x, Y: y, Color: gait.MarkerColor})
	}
	return out
}

// Builder produces the overlay for the representative frame.
type Builder struct {
	detector Detector
	renderer Renderer
	opts     Options
}

// NewBuilder combines a detector and renderer. Either may be nil, in which
// case the corresponding output is omitted.
func NewBuilder(detector Detector, renderer Renderer, opts Options) *Builder {
	return &Builder{detector: detector, renderer: renderer, opts: opts}
}

// Build returns the markers and the base64 JPEG. With a nil frame both
// are empty. Detection or rendering failures drop only the affected part.
func (b *Builder) Build(gray *image.Gray, colour image.Image, box *gait.BoundingBox) ([]gait.OverlayPoint, *string) {
	points := []gait.OverlayPoint{}
	if gray == nil || colour == nil {
		return points, nil
	}
	bounds := gray.Bounds()
	if b.detector != nil {
		corners, err := b.detector.Corners(gray)
		if err != nil {
			monitoring.Logf("[Overlay] corner detection failed: %v", err)
		} else {
			if limit := b.opts.CornerLimit(); len(corners) > limit {
				corners = corners[:limit]
			}
			points = Points(corners, bounds.Dx(), bounds.Dy())
		}
	}
	return points, b.Encode(colour, box, points)
}

// Encode renders and base64-encodes a still, nil on failure.
func (b *Builder) Encode(frame image.Image, box *gait.BoundingBox, points []gait.OverlayPoint) *string {
	if b.renderer == nil || frame == nil {
		return nil
	}
	jpg, err := b.renderer.Render(frame, box, points)
	if err != nil {
		monitoring.Logf("[Overlay] render failed: %v", err)
		return nil
	}
	s := base64.StdEncoding.EncodeToString(jpg)
	return &s
}

// BlankCanvas is the stand-in frame when none can be decoded.
func BlankCanvas() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}
