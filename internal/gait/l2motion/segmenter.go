package l2motion

import (
	"fmt"
	"image"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
)

// Options configure the background model and box acceptance.
type Options struct {
	History        int
	VarThreshold   float64
	MedianKernel   int
	MinBoxFraction float64
}

// DefaultOptions returns a 300-frame history, variance threshold 25,
// 5-pixel median denoise and a 2% minimum box area.
func DefaultOptions() Options {
	return Options{History: 300, VarThreshold: 25, MedianKernel: 5, MinBoxFraction: 0.02}
}

// MotionModel is the per-run background model. It is stateful, not safe
// for concurrent use, and must not be shared between runs.
type MotionModel interface {
	// Apply updates the model with a frame and returns the denoised
	// foreground mask (0 background, non-zero foreground).
	Apply(gray *image.Gray) (*image.Gray, error)
	// LargestRegion returns the bounding rectangle of the largest connected
	// foreground region, or false when the mask is empty.
	LargestRegion(mask *image.Gray) (image.Rectangle, bool)
	Close() error
}

// Segmentation is the per-frame outcome.
type Segmentation struct {
	Mask *image.Gray
	// Box is the current subject box after hysteresis, nil until one has
	// been accepted.
	Box *gait.BoundingBox
	// Accepted is true when this frame replaced the box.
	Accepted bool
}

// Segmenter tracks the subject box across one run.
type Segmenter struct {
	model          MotionModel
	minBoxFraction float64
	box            *gait.BoundingBox
}

// NewSegmenter wraps a fresh motion model.
func NewSegmenter(model MotionModel, minBoxFraction float64) *Segmenter {
	return &Segmenter{model: model, minBoxFraction: minBoxFraction}
}

// Segment feeds one frame through the model and updates the box.
func (s *Segmenter) Segment(frame *l1frames.SampledFrame) (Segmentation, error) {
	mask, err := s.model.Apply(frame.Gray)
	if err != nil {
		return Segmentation{}, fmt.Errorf("%w: segment frame %d: %v", gait.ErrInput, frame.SourceIndex, err)
	}
	accepted := false
	if rect, ok := s.model.LargestRegion(mask); ok {
		s.box, accepted = Hysteresis(s.box, rect, frame.Width, frame.Height, s.minBoxFraction)
	}
	return Segmentation{Mask: mask, Box: s.box, Accepted: accepted}, nil
}

// Box returns the last accepted box, nil if none.
func (s *Segmenter) Box() *gait.BoundingBox { return s.box }

// Hysteresis accepts candidate when its area exceeds minFraction of the
// frame, otherwise keeps prev.
func Hysteresis(prev *gait.BoundingBox, candidate image.Rectangle, w, h int, minFraction float64) (*gait.BoundingBox, bool) {
	c := gait.BoxFromRect(candidate)
	if float64(c.Area()) > minFraction*float64(w*h) {
		return &c, true
	}
	return prev, false
}
