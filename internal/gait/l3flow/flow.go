package l3flow

import (
	"fmt"
	"image"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Options are the Farneback parameters.
type Options struct {
	PyrScale   float64
	Levels     int
	Window     int
	Iterations int
	PolyN      int
	PolySigma  float64
}

// DefaultOptions returns pyramid scale 0.5, 3 levels, window 25,
// 3 iterations, polynomial neighbourhood 5 with sigma 1.2.
func DefaultOptions() Options {
	return Options{PyrScale: 0.5, Levels: 3, Window: 25, Iterations: 3, PolyN: 5, PolySigma: 1.2}
}

// Field computes dense flow between two frames of equal size.
type Field interface {
	// MedianDX returns the median horizontal displacement in pixels over
	// roi, NaN when roi holds no samples.
	MedianDX(prev, next *image.Gray, roi image.Rectangle) (float64, error)
	Close() error
}

// Estimator accumulates one flow sample per consecutive frame pair.
type Estimator struct {
	field   Field
	prev    *image.Gray
	samples []float64
}

// NewEstimator wraps a flow field for one run.
func NewEstimator(field Field) *Estimator {
	return &Estimator{field: field}
}

// Step records the displacement from the previous frame to gray, measured
// inside box when one is set and overlaps the frame, else over the whole
// frame. The first call only primes the estimator.
func (e *Estimator) Step(gray *image.Gray, box *gait.BoundingBox) error {
	if e.prev != nil {
		roi := gray.Bounds()
		if box != nil {
			if r := box.Rect().Intersect(roi); !r.Empty() {
				roi = r
			}
		}
		dx, err := e.field.MedianDX(e.prev, gray, roi)
		if err != nil {
			return fmt.Errorf("%w: optical flow: %v", gait.ErrInput, err)
		}
		e.samples = append(e.samples, dx)
	}
	e.prev = gray
	return nil
}

// Samples returns the recorded per-step displacements.
func (e *Estimator) Samples() []float64 { return e.samples }

// MeanStep averages the finite samples; zero when there are none.
func (e *Estimator) MeanStep() float64 {
	var sum float64
	var n int
	for _, v := range e.samples {
		if gait.IsFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Speed converts the mean step to pixels per second at the sampling rate.
func (e *Estimator) Speed(fps float64) float64 {
	return e.MeanStep() * fps
}
