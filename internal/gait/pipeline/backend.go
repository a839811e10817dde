package pipeline

import (
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
	"github.com/banshee-data/gait.report/internal/gait/l2motion"
	"github.com/banshee-data/gait.report/internal/gait/l3flow"
	"github.com/banshee-data/gait.report/internal/gait/l6overlay"
)

// Backend supplies the vision primitives. The default is OpenCV; tests
// substitute synthetic implementations.
type Backend struct {
	OpenVideo      func(path string, opts l1frames.Options) (l1frames.Source, error)
	GrabFrame      func(path string, index int) (*l1frames.Still, error)
	NewMotionModel func(opts l2motion.Options) (l2motion.MotionModel, error)
	NewFlowField   func(opts l3flow.Options) (l3flow.Field, error)
	NewDetector    func(opts l6overlay.Options) (l6overlay.Detector, error)
	NewRenderer    func(opts l6overlay.Options) (l6overlay.Renderer, error)
}

// OpenCVBackend wires the gocv implementations. Without -tags=opencv every
// constructor returns an ErrInput-class error.
func OpenCVBackend() Backend {
	return Backend{
		OpenVideo:      l1frames.OpenVideo,
		GrabFrame:      l1frames.GrabFrame,
		NewMotionModel: l2motion.NewMotionModel,
		NewFlowField:   l3flow.NewField,
		NewDetector:    l6overlay.NewDetector,
		NewRenderer:    l6overlay.NewRenderer,
	}
}
