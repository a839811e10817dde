//go:build opencv
// +build opencv

package l3flow

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/banshee-data/gait.report/internal/gait"
)

type farneback struct {
	opts Options
}

// NewField returns a Farneback dense flow field.
func NewField(opts Options) (Field, error) {
	return &farneback{opts: opts}, nil
}

func (f *farneback) MedianDX(prev, next *image.Gray, roi image.Rectangle) (float64, error) {
	p, err := gocv.ImageGrayToMatGray(prev)
	if err != nil {
		return 0, err
	}
	defer p.Close()
	n, err := gocv.ImageGrayToMatGray(next)
	if err != nil {
		return 0, err
	}
	defer n.Close()

	flow := gocv.NewMat()
	defer flow.Close()
	o := f.opts
	gocv.CalcOpticalFlowFarneback(p, n, &flow, o.PyrScale, o.Levels, o.Window, o.Iterations, o.PolyN, o.PolySigma, 0)

	roi = roi.Intersect(image.Rect(0, 0, flow.Cols(), flow.Rows()))
	if roi.Empty() {
		return math.NaN(), nil
	}
	region := flow.Region(roi)
	defer region.Close()
	dense := region.Clone()
	defer dense.Close()

	channels := gocv.Split(dense)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	xs, err := channels[0].DataPtrFloat32()
	if err != nil {
		return 0, err
	}
	vals := make([]float64, len(xs))
	for i, v := range xs {
		vals[i] = float64(v)
	}
	return gait.Median(vals), nil
}

func (f *farneback) Close() error { return nil }
