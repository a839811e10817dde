package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/keypoints"
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
	"github.com/banshee-data/gait.report/internal/gait/l2motion"
	"github.com/banshee-data/gait.report/internal/gait/l3flow"
	"github.com/banshee-data/gait.report/internal/gait/l6overlay"
)

const frameSize = 20

// quadMask fills the given fraction of each 10x10 quadrant.
func quadMask(tl, tr, bl, br float64) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, frameSize, frameSize))
	half := frameSize / 2
	fill := func(x0, y0 int, frac float64) {
		n := int(math.Round(frac * float64(half*half)))
		for i := 0; i < n; i++ {
			m.SetGray(x0+i%half, y0+i/half, color.Gray{Y: 255})
		}
	}
	fill(0, 0, tl)
	fill(half, 0, tr)
	fill(0, half, bl)
	fill(half, half, br)
	return m
}

// stride returns a 1 Hz energy cycle sampled at 12 Hz.
func stride(i int) float64 {
	return 0.5 + 0.4*math.Sin(2*math.Pi*float64(i)/12+0.3)
}

type clip struct {
	masks []*image.Gray

	sourceClosed bool
	modelClosed  bool
	fieldClosed  bool
}

func symmetricClip(n int) *clip {
	c := &clip{}
	for i := 0; i < n; i++ {
		e := stride(i)
		c.masks = append(c.masks, quadMask(e, e, e, e))
	}
	return c
}

func leftOnlyClip(n int) *clip {
	c := &clip{}
	for i := 0; i < n; i++ {
		c.masks = append(c.masks, quadMask(stride(i), 0, 0, 0))
	}
	return c
}

type clipSource struct {
	c    *clip
	next int
}

func (s *clipSource) Next() (*l1frames.SampledFrame, error) {
	if s.next >= len(s.c.masks) {
		return nil, io.EOF
	}
	i := s.next
	s.next++
	return &l1frames.SampledFrame{
		Index:       i,
		SourceIndex: i,
		Width:       frameSize,
		Height:      frameSize,
		Gray:        image.NewGray(image.Rect(0, 0, frameSize, frameSize)),
		Color:       image.NewRGBA(image.Rect(0, 0, frameSize, frameSize)),
	}, nil
}

func (s *clipSource) SourceFPS() float64 { return 12 }
func (s *clipSource) Stride() int        { return 1 }
func (s *clipSource) Close() error {
	s.c.sourceClosed = true
	return nil
}

type clipMotion struct {
	c     *clip
	calls int
}

func (m *clipMotion) Apply(*image.Gray) (*image.Gray, error) {
	mask := m.c.masks[m.calls]
	m.calls++
	return mask, nil
}

func (m *clipMotion) LargestRegion(mask *image.Gray) (image.Rectangle, bool) {
	var r image.Rectangle
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y != 0 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r, !r.Empty()
}

func (m *clipMotion) Close() error {
	m.c.modelClosed = true
	return nil
}

type constantField struct {
	c  *clip
	dx float64
}

func (f *constantField) MedianDX(_, _ *image.Gray, _ image.Rectangle) (float64, error) {
	return f.dx, nil
}

func (f *constantField) Close() error {
	f.c.fieldClosed = true
	return nil
}

type fixedCorners [][2]float64

func (c fixedCorners) Corners(*image.Gray) ([][2]float64, error) { return c, nil }

type stubRenderer struct{}

func (stubRenderer) Render(image.Image, *gait.BoundingBox, []gait.OverlayPoint) ([]byte, error) {
	return []byte("jpeg"), nil
}

func syntheticBackend(c *clip) Backend {
	return Backend{
		OpenVideo: func(string, l1frames.Options) (l1frames.Source, error) {
			return &clipSource{c: c}, nil
		},
		GrabFrame: func(string, int) (*l1frames.Still, error) {
			return nil, errors.New("no decoder")
		},
		NewMotionModel: func(l2motion.Options) (l2motion.MotionModel, error) {
			return &clipMotion{c: c}, nil
		},
		NewFlowField: func(l3flow.Options) (l3flow.Field, error) {
			return &constantField{c: c, dx: 2}, nil
		},
		NewDetector: func(l6overlay.Options) (l6overlay.Detector, error) {
			return fixedCorners{{0, 0}, {19, 19}, {10, 5}, {25, -3}}, nil
		},
		NewRenderer: func(l6overlay.Options) (l6overlay.Renderer, error) {
			return stubRenderer{}, nil
		},
	}
}

type fixedModel struct {
	result keypoints.Result
	calls  int
}

func (m *fixedModel) Predict(context.Context, string) keypoints.Result {
	m.calls++
	return m.result
}
