//go:build opencv
// +build opencv

package l2motion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type mog2Model struct {
	bs     gocv.BackgroundSubtractorMOG2
	kernel int
}

// NewMotionModel returns a MOG2 background model without shadow
// detection, followed by a median blur of the mask.
func NewMotionModel(opts Options) (MotionModel, error) {
	if opts.MedianKernel > 1 && opts.MedianKernel%2 == 0 {
		return nil, fmt.Errorf("median kernel must be odd, got %d", opts.MedianKernel)
	}
	return &mog2Model{
		bs:     gocv.NewBackgroundSubtractorMOG2WithParams(opts.History, opts.VarThreshold, false),
		kernel: opts.MedianKernel,
	}, nil
}

func (m *mog2Model) Apply(gray *image.Gray) (*image.Gray, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	fg := gocv.NewMat()
	defer fg.Close()
	m.bs.Apply(src, &fg)

	out := fg
	if m.kernel > 1 {
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.MedianBlur(fg, &blurred, m.kernel)
		out = blurred
	}
	img, err := out.ToImage()
	if err != nil {
		return nil, err
	}
	mask, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected mask type %T", img)
	}
	return mask, nil
}

func (m *mog2Model) LargestRegion(mask *image.Gray) (image.Rectangle, bool) {
	src, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		return image.Rectangle{}, false
	}
	defer src.Close()

	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, -1.0
	for i := 0; i < contours.Size(); i++ {
		if a := gocv.ContourArea(contours.At(i)); a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return image.Rectangle{}, false
	}
	return gocv.BoundingRect(contours.At(best)), true
}

func (m *mog2Model) Close() error {
	return m.bs.Close()
}
