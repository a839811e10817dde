package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/keypoints"
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
	"github.com/banshee-data/gait.report/internal/gait/l2motion"
	"github.com/banshee-data/gait.report/internal/gait/l3flow"
	"github.com/banshee-data/gait.report/internal/gait/l4cadence"
	"github.com/banshee-data/gait.report/internal/gait/l5symmetry"
	"github.com/banshee-data/gait.report/internal/gait/l6overlay"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// Analyzer runs the gait pipeline on clips.
type Analyzer struct {
	cfg     Config
	backend Backend
	model   keypoints.Model
}

// New returns an Analyzer. model may be nil to disable the keypoint path.
func New(cfg Config, backend Backend, model keypoints.Model) *Analyzer {
	return &Analyzer{cfg: cfg, backend: backend, model: model}
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze scores one clip. The pose keypoint path is tried first when a
// model is set; any unavailability falls back to the motion heuristics.
// Errors wrap gait.ErrInput or gait.ErrInsufficientData.
func (a *Analyzer) Analyze(ctx context.Context, videoPath string) (*gait.AnalysisResult, error) {
	if a.model != nil {
		res := a.model.Predict(ctx, videoPath)
		if res.Status == keypoints.Available && (res.Prediction == nil || len(res.Prediction.Frames) == 0) {
			res = keypoints.Result{Status: keypoints.Unavailable, Reason: "empty prediction"}
		}
		if res.Status == keypoints.Available {
			return a.FromKeypoints(videoPath, res.Prediction), nil
		}
		monitoring.Logf("[Pipeline] %v; falling back to motion heuristics", res.Err())
	}
	return a.Heuristic(ctx, videoPath)
}

// Heuristic runs the motion path: sample, segment, measure quadrant energy
// and flow, then score. All stage resources are released on return.
func (a *Analyzer) Heuristic(ctx context.Context, videoPath string) (*gait.AnalysisResult, error) {
	if a.backend.OpenVideo == nil || a.backend.NewMotionModel == nil || a.backend.NewFlowField == nil {
		return nil, fmt.Errorf("%w: no video backend configured", gait.ErrInput)
	}
	start := time.Now()

	src, err := a.backend.OpenVideo(videoPath, a.cfg.Frames)
	if err != nil {
		return nil, asInput(err)
	}
	defer src.Close()

	model, err := a.backend.NewMotionModel(a.cfg.Motion)
	if err != nil {
		return nil, asInput(err)
	}
	defer model.Close()

	field, err := a.backend.NewFlowField(a.cfg.Flow)
	if err != nil {
		return nil, asInput(err)
	}
	defer field.Close()

	seg := l2motion.NewSegmenter(model, a.cfg.Motion.MinBoxFraction)
	flow := l3flow.NewEstimator(field)
	var energy l2motion.EnergySeries
	var first *l1frames.SampledFrame

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: analysis stopped after %d frames: %v", gait.ErrInput, energy.Len(), err)
		}
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, asInput(err)
		}
		s, err := seg.Segment(frame)
		if err != nil {
			return nil, err
		}
		energy.Append(l2motion.Quadrants(s.Mask))
		if err := flow.Step(frame.Gray, s.Box); err != nil {
			return nil, err
		}
		if first == nil {
			first = frame
		}
	}

	if need := max(a.cfg.MinFrames, MinSampledFrames); energy.Len() < need {
		return nil, fmt.Errorf("%w: not enough frames: sampled %d, need %d",
			gait.ErrInsufficientData, energy.Len(), need)
	}

	res := a.assemble(&energy, flow, first, seg.Box())
	monitoring.Logf("[Pipeline] %d frames (stride %d from %.1f fps) scored %.1f in %v",
		energy.Len(), src.Stride(), src.SourceFPS(), res.Score, time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (a *Analyzer) assemble(energy *l2motion.EnergySeries, flow *l3flow.Estimator, first *l1frames.SampledFrame, box *gait.BoundingBox) *gait.AnalysisResult {
	fs := a.cfg.Frames.TargetFPS
	sigma := a.cfg.SmoothingSigma
	sig := gait.Signals{
		Left:   l4cadence.Smooth(energy.Left, sigma),
		Right:  l4cadence.Smooth(energy.Right, sigma),
		Top:    l4cadence.Smooth(energy.Top, sigma),
		Bottom: l4cadence.Smooth(energy.Bottom, sigma),
	}

	cad := l4cadence.Cadence(sig.Left, sig.Right, fs, a.cfg.Cadence)
	assess := l5symmetry.QuadrantSignals{
		Left: sig.Left, Right: sig.Right, Top: sig.Top, Bottom: sig.Bottom,
	}.Assess(a.cfg.Policy)

	speed := flow.Speed(fs)
	strideLen := math.NaN()
	if cad.Hz > 0 {
		strideLen = speed / cad.Hz
	}

	metrics := gait.Metrics{
		FPS:               gait.Num(fs),
		CadenceHz:         gait.Num(cad.Hz),
		StrideTimeS:       gait.Num(cad.StrideTimeS),
		DutyFactor:        assess.Duty,
		SymmetryIndex:     assess.Symmetry,
		GSA:               gait.Number(assess.GSA),
		SpeedPxS:          gait.Num(speed),
		StrideLengthPxEst: gait.Num(strideLen),
	}
	if a.cfg.IncludeSignals {
		metrics.Signals = &sig
	}

	var gray *image.Gray
	var colour image.Image
	if first != nil {
		gray, colour = first.Gray, first.Color
	}
	points, still := a.overlayBuilder(true).Build(gray, colour, box)

	return &gait.AnalysisResult{
		Score:          assess.Score,
		Recommendation: assess.Recommendation,
		Metrics:        metrics,
		OverlayPoints:  points,
		FrameJPEGB64:   still,
	}
}

// FromKeypoints scores a pose prediction using its middle frame. pred
// must hold at least one frame.
func (a *Analyzer) FromKeypoints(videoPath string, pred *keypoints.Prediction) *gait.AnalysisResult {
	idx := len(pred.Frames) / 2
	frame := pred.Frames[idx]

	img, fps := a.representativeFrame(videoPath, idx)
	b := img.Bounds()

	groups, left := l5symmetry.GroupKeypoints(frame.Coordinates)
	assess := groups.Assess(a.cfg.Policy)

	points := make([]gait.OverlayPoint, 0, len(frame.Coordinates))
	for i, c := range frame.Coordinates {
		x, y := l6overlay.Normalize(c[0], c[1], b.Dx(), b.Dy())
		conf := 1.0
		if i < len(frame.Confidence) {
			conf = frame.Confidence[i]
		}
		points = append(points, gait.OverlayPoint{
			X: x, Y: y, Color: gait.MarkerColor, Label: fmt.Sprintf("kp_%d", i), Conf: &conf,
		})
	}

	return &gait.AnalysisResult{
		Score:          assess.Score,
		Recommendation: assess.Recommendation,
		Metrics: gait.Metrics{
			SymmetryIndex: assess.Symmetry,
			GSA:           gait.Number(assess.GSA),
			Events:        a.footstrikes(pred, left, fps),
		},
		OverlayPoints: points,
		FrameJPEGB64:  a.overlayBuilder(false).Encode(img, nil, points),
	}
}

func (a *Analyzer) representativeFrame(videoPath string, idx int) (image.Image, float64) {
	if a.backend.GrabFrame != nil {
		still, err := a.backend.GrabFrame(videoPath, idx)
		if err == nil {
			return still.Image, still.SourceFPS
		}
		monitoring.Logf("[Pipeline] frame %d unavailable, drawing on blank canvas: %v", idx, err)
	}
	return l6overlay.BlankCanvas(), l1frames.DefaultSourceFPS
}

// footstrikes finds per-side minima of the mean keypoint height across
// all predicted frames. Sides are fixed by the representative frame.
func (a *Analyzer) footstrikes(pred *keypoints.Prediction, left []bool, fps float64) map[string][]float64 {
	win := a.cfg.FootstrikeWindow
	if win <= 0 || len(pred.Frames) <= 2*win || len(left) == 0 {
		return nil
	}
	ly := make([]float64, len(pred.Frames))
	ry := make([]float64, len(pred.Frames))
	for i, f := range pred.Frames {
		ly[i] = sideMean(f.Coordinates, left, true)
		ry[i] = sideMean(f.Coordinates, left, false)
	}
	return map[string][]float64{
		"left_footstrike_s":  orEmpty(l5symmetry.Footstrikes(ly, fps, win)),
		"right_footstrike_s": orEmpty(l5symmetry.Footstrikes(ry, fps, win)),
	}
}

func sideMean(coords [][2]float64, left []bool, wantLeft bool) float64 {
	var sum float64
	var n int
	for k, c := range coords {
		if k >= len(left) || left[k] != wantLeft {
			continue
		}
		sum += c[1]
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func orEmpty(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}

func (a *Analyzer) overlayBuilder(withDetector bool) *l6overlay.Builder {
	var det l6overlay.Detector
	if withDetector && a.backend.NewDetector != nil {
		d, err := a.backend.NewDetector(a.cfg.Overlay)
		if err != nil {
			monitoring.Logf("[Pipeline] corner detector unavailable: %v", err)
		} else {
			det = d
		}
	}
	var rend l6overlay.Renderer
	if a.backend.NewRenderer != nil {
		r, err := a.backend.NewRenderer(a.cfg.Overlay)
		if err != nil {
			monitoring.Logf("[Pipeline] overlay renderer unavailable: %v", err)
		} else {
			rend = r
		}
	}
	return l6overlay.NewBuilder(det, rend, a.cfg.Overlay)
}

func asInput(err error) error {
	if errors.Is(err, gait.ErrInput) || errors.Is(err, gait.ErrInsufficientData) {
		return err
	}
	return fmt.Errorf("%w: %v", gait.ErrInput, err)
}
