//go:build opencv
// +build opencv

package l1frames

import (
	"fmt"
	"image"
	"io"
	"math"

	"gocv.io/x/gocv"

	"github.com/banshee-data/gait.report/internal/gait"
)

type videoSource struct {
	vc      *gocv.VideoCapture
	opts    Options
	fps     float64
	stride  int
	decoded int
	sampled int
	raw     gocv.Mat
	resized gocv.Mat
	gray    gocv.Mat
}

// OpenVideo opens a clip for stride sampling. The caller must Close the
// returned Source.
func OpenVideo(path string, opts Options) (Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open video %s: %v", gait.ErrInput, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: cannot open video %s", gait.ErrInput, path)
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultSourceFPS
	}
	return &videoSource{
		vc:      vc,
		opts:    opts,
		fps:     fps,
		stride:  Stride(fps, opts.TargetFPS),
		raw:     gocv.NewMat(),
		resized: gocv.NewMat(),
		gray:    gocv.NewMat(),
	}, nil
}

func (s *videoSource) SourceFPS() float64 { return s.fps }
func (s *videoSource) Stride() int        { return s.stride }

func (s *videoSource) Next() (*SampledFrame, error) {
	for {
		if ok := s.vc.Read(&s.raw); !ok || s.raw.Empty() {
			return nil, io.EOF
		}
		idx := s.decoded
		s.decoded++
		if !Keep(idx, s.stride) {
			continue
		}
		return s.sample(idx)
	}
}

func (s *videoSource) sample(sourceIndex int) (*SampledFrame, error) {
	w, h := s.raw.Cols(), s.raw.Rows()
	sw, sh := ScaledSize(w, h, s.opts.MaxDimension)
	frame := s.raw
	if sw != w || sh != h {
		gocv.Resize(s.raw, &s.resized, image.Pt(sw, sh), 0, 0, gocv.InterpolationArea)
		frame = s.resized
	}
	gocv.CvtColor(frame, &s.gray, gocv.ColorBGRToGray)

	colour, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", gait.ErrInput, sourceIndex, err)
	}
	grayImg, err := s.gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", gait.ErrInput, sourceIndex, err)
	}
	gray, ok := grayImg.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("%w: frame %d: unexpected greyscale type %T", gait.ErrInput, sourceIndex, grayImg)
	}

	out := &SampledFrame{
		Index:       s.sampled,
		SourceIndex: sourceIndex,
		Width:       sw,
		Height:      sh,
		Gray:        gray,
		Color:       colour,
	}
	s.sampled++
	return out, nil
}

func (s *videoSource) Close() error {
	s.raw.Close()
	s.resized.Close()
	s.gray.Close()
	return s.vc.Close()
}

// GrabFrame decodes the frame at zero-based position index.
func GrabFrame(path string, index int) (*Still, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open video %s: %v", gait.ErrInput, path, err)
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return nil, fmt.Errorf("%w: cannot open video %s", gait.ErrInput, path)
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || math.IsNaN(fps) {
		fps = DefaultSourceFPS
	}
	vc.Set(gocv.VideoCapturePosFrames, float64(index))

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := vc.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: cannot read frame %d of %s", gait.ErrInput, index, path)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", gait.ErrInput, index, err)
	}
	return &Still{Image: img, SourceFPS: fps}, nil
}
