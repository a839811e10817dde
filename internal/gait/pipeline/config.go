package pipeline

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/keypoints"
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
	"github.com/banshee-data/gait.report/internal/gait/l2motion"
	"github.com/banshee-data/gait.report/internal/gait/l3flow"
	"github.com/banshee-data/gait.report/internal/gait/l4cadence"
	"github.com/banshee-data/gait.report/internal/gait/l5symmetry"
	"github.com/banshee-data/gait.report/internal/gait/l6overlay"
)

// MinSampledFrames is the floor on frames a clip must yield. A smaller
// Config.MinFrames is raised to it.
const MinSampledFrames = 8

// Config gathers per-layer options.
type Config struct {
	Frames           l1frames.Options
	Motion           l2motion.Options
	Flow             l3flow.Options
	SmoothingSigma   float64
	Cadence          l4cadence.Options
	Policy           l5symmetry.Policy
	Overlay          l6overlay.Options
	MinFrames        int
	IncludeSignals   bool
	FootstrikeWindow int
}

// DefaultConfig returns the built-in defaults of every layer.
func DefaultConfig() Config {
	return Config{
		Frames:           l1frames.DefaultOptions(),
		Motion:           l2motion.DefaultOptions(),
		Flow:             l3flow.DefaultOptions(),
		SmoothingSigma:   2,
		Cadence:          l4cadence.DefaultOptions(),
		Policy:           l5symmetry.DefaultPolicy(),
		Overlay:          l6overlay.DefaultOptions(),
		MinFrames:        MinSampledFrames,
		IncludeSignals:   true,
		FootstrikeWindow: 5,
	}
}

// ConfigFromTuning maps a tuning file onto layer options.
func ConfigFromTuning(t *config.TuningConfig) (Config, error) {
	cfg := Config{
		Frames: l1frames.Options{
			TargetFPS:    t.GetTargetFPS(),
			MaxDimension: t.GetMaxDimension(),
		},
		Motion: l2motion.Options{
			History:        t.GetMOG2History(),
			VarThreshold:   t.GetMOG2VarThreshold(),
			MedianKernel:   t.GetMedianKernel(),
			MinBoxFraction: t.GetMinBBoxFraction(),
		},
		Flow: l3flow.Options{
			PyrScale:   t.GetFlowPyrScale(),
			Levels:     t.GetFlowLevels(),
			Window:     t.GetFlowWindow(),
			Iterations: t.GetFlowIterations(),
			PolyN:      t.GetFlowPolyN(),
			PolySigma:  t.GetFlowPolySigma(),
		},
		SmoothingSigma: t.GetSmoothingSigma(),
		Cadence: l4cadence.Options{
			MinHz: t.GetCadenceMinHz(),
			MaxHz: t.GetCadenceMaxHz(),
		},
		Policy: l5symmetry.Policy{
			Thresholds:      t.GetGSAThresholds(),
			Levels:          t.GetScoreLevels(),
			DegenerateScore: t.GetDegenerateScore(),
			MonitorAbove:    t.GetMonitorAboveScore(),
		},
		Overlay: l6overlay.Options{
			MaxCorners:  t.GetMaxCorners(),
			Quality:     t.GetCornerQuality(),
			MinDistance: t.GetCornerMinDistance(),
			JPEGQuality: t.GetJPEGQuality(),
		},
		MinFrames:        t.GetMinFrames(),
		IncludeSignals:   t.GetIncludeSignals(),
		FootstrikeWindow: t.GetFootstrikeWindow(),
	}
	if err := cfg.Policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("pipeline config: %w", err)
	}
	return cfg, nil
}

// NewFromTuning builds an Analyzer from a tuning file. poseCommand
// overrides pose_model_command when non-empty; with neither set the
// analyzer runs the motion heuristics only.
func NewFromTuning(t *config.TuningConfig, backend Backend, poseCommand string) (*Analyzer, error) {
	cfg, err := ConfigFromTuning(t)
	if err != nil {
		return nil, err
	}
	if poseCommand == "" {
		poseCommand = t.GetPoseModelCommand()
	}
	var model keypoints.Model
	if poseCommand != "" {
		model = keypoints.NewCommandModel(poseCommand, t.GetPoseModelTimeout())
	}
	return New(cfg, backend, model), nil
}
