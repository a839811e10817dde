package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/keypoints"
	"github.com/banshee-data/gait.report/internal/gait/l1frames"
)

func TestHeuristicSymmetricGait(t *testing.T) {
	c := symmetricClip(48)
	a := New(DefaultConfig(), syntheticBackend(c), nil)

	res, err := a.Analyze(context.Background(), "walk.mp4")
	require.NoError(t, err)

	m := res.Metrics
	assert.Equal(t, 0.0, m.GSA.Float())
	assert.Equal(t, 0.0, m.SymmetryIndex.LeftRight.Float())
	require.NotNil(t, m.SymmetryIndex.TopBottom)
	assert.Equal(t, 0.0, m.SymmetryIndex.TopBottom.Float())
	assert.Equal(t, 5.0, res.Score)
	assert.Equal(t, gait.RecommendMonitor, res.Recommendation)

	require.NotNil(t, m.CadenceHz)
	assert.InDelta(t, 1.0, m.CadenceHz.Float(), 12.0/48)
	assert.InDelta(t, 1/m.CadenceHz.Float(), m.StrideTimeS.Float(), 1e-12)
	assert.Equal(t, 12.0, m.FPS.Float())
	assert.Equal(t, 24.0, m.SpeedPxS.Float())
	assert.InDelta(t, 24/m.CadenceHz.Float(), m.StrideLengthPxEst.Float(), 1e-9)

	require.NotNil(t, m.Signals)
	assert.Equal(t, 48, m.Signals.Len())
	require.NotNil(t, m.DutyFactor)

	require.Len(t, res.OverlayPoints, 4)
	for _, p := range res.OverlayPoints {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, 1.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 1.0)
	}
	require.NotNil(t, res.FrameJPEGB64)
	assert.Equal(t, "anBlZw==", *res.FrameJPEGB64)

	assert.True(t, c.sourceClosed)
	assert.True(t, c.modelClosed)
	assert.True(t, c.fieldClosed)
}

func TestHeuristicAsymmetricGait(t *testing.T) {
	a := New(DefaultConfig(), syntheticBackend(leftOnlyClip(48)), nil)
	res, err := a.Analyze(context.Background(), "limp.mp4")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Metrics.GSA.Float(), 20.0)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, gait.RecommendVet, res.Recommendation)
	assert.Equal(t, 1.0, res.Metrics.DutyFactor.Right.Float())
	assert.InDelta(t, 1.0, res.Metrics.CadenceHz.Float(), 12.0/48)
}

func TestHeuristicNotEnoughFrames(t *testing.T) {
	c := symmetricClip(7)
	_, err := New(DefaultConfig(), syntheticBackend(c), nil).Analyze(context.Background(), "short.mp4")
	assert.ErrorIs(t, err, gait.ErrInsufficientData)
	assert.True(t, c.sourceClosed)
	assert.True(t, c.modelClosed)
	assert.True(t, c.fieldClosed)

	_, err = New(DefaultConfig(), syntheticBackend(symmetricClip(8)), nil).Analyze(context.Background(), "ok.mp4")
	assert.NoError(t, err)
}

func TestHeuristicMinFramesFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFrames = 2
	_, err := New(cfg, syntheticBackend(symmetricClip(7)), nil).Analyze(context.Background(), "short.mp4")
	assert.ErrorIs(t, err, gait.ErrInsufficientData)
}

func TestHeuristicCancelledReleasesResources(t *testing.T) {
	c := symmetricClip(48)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig(), syntheticBackend(c), nil).Analyze(ctx, "walk.mp4")
	assert.ErrorIs(t, err, gait.ErrInput)
	assert.True(t, c.sourceClosed)
	assert.True(t, c.modelClosed)
}

func TestHeuristicOpenFailure(t *testing.T) {
	b := syntheticBackend(symmetricClip(1))
	b.OpenVideo = func(string, l1frames.Options) (l1frames.Source, error) {
		return nil, errors.New("moov atom not found")
	}
	_, err := New(DefaultConfig(), b, nil).Analyze(context.Background(), "broken.mp4")
	assert.ErrorIs(t, err, gait.ErrInput)
	assert.Contains(t, err.Error(), "moov atom")

	_, err = New(DefaultConfig(), Backend{}, nil).Analyze(context.Background(), "walk.mp4")
	assert.ErrorIs(t, err, gait.ErrInput)
}

func TestAnalyzeFallsBackWhenModelUnavailable(t *testing.T) {
	model := &fixedModel{result: keypoints.Result{Status: keypoints.Unavailable, Reason: "not configured"}}
	res, err := New(DefaultConfig(), syntheticBackend(symmetricClip(48)), model).Analyze(context.Background(), "walk.mp4")
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
	assert.NotNil(t, res.Metrics.DutyFactor)
	assert.Equal(t, 5.0, res.Score)

	// An available result without frames is treated the same way.
	model = &fixedModel{result: keypoints.Result{Status: keypoints.Available, Prediction: &keypoints.Prediction{}}}
	res, err = New(DefaultConfig(), syntheticBackend(symmetricClip(48)), model).Analyze(context.Background(), "walk.mp4")
	require.NoError(t, err)
	assert.NotNil(t, res.Metrics.DutyFactor)
}

func poseFrames(n int) []keypoints.Frame {
	frames := make([]keypoints.Frame, n)
	for i := range frames {
		frames[i] = keypoints.Frame{
			Coordinates: [][2]float64{{100, 300}, {200, 310}, {900, 500}, {1000, 520}},
			Confidence:  []float64{0.9, 0.8, 0.7, 0.6},
		}
	}
	return frames
}

func TestAnalyzeUsesKeypoints(t *testing.T) {
	model := &fixedModel{result: keypoints.Result{
		Status:     keypoints.Available,
		Prediction: &keypoints.Prediction{Frames: poseFrames(12)},
	}}
	c := symmetricClip(48)
	res, err := New(DefaultConfig(), syntheticBackend(c), model).Analyze(context.Background(), "walk.mp4")
	require.NoError(t, err)
	assert.False(t, c.sourceClosed, "heuristic path should not run")

	// Left mean y 305, right 510.
	assert.InDelta(t, 100*205/407.5, res.Metrics.GSA.Float(), 1e-9)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, gait.RecommendVet, res.Recommendation)
	assert.Nil(t, res.Metrics.DutyFactor)
	assert.Nil(t, res.Metrics.SymmetryIndex.TopBottom)

	require.Len(t, res.OverlayPoints, 4)
	p := res.OverlayPoints[0]
	assert.InDelta(t, 100.0/1280, p.X, 1e-12)
	assert.InDelta(t, 300.0/720, p.Y, 1e-12)
	assert.Equal(t, "kp_0", p.Label)
	require.NotNil(t, p.Conf)
	assert.Equal(t, 0.9, *p.Conf)
	require.NotNil(t, res.FrameJPEGB64)

	assert.Equal(t, []float64{5.0 / 30, 6.0 / 30}, res.Metrics.Events["left_footstrike_s"])
	assert.Contains(t, res.Metrics.Events, "right_footstrike_s")

	b, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.NotContains(t, decoded["metrics"], "duty_factor")
}

func TestAnalyzeKeypointsDegenerate(t *testing.T) {
	frames := []keypoints.Frame{{Coordinates: [][2]float64{{10, 10}}, Confidence: []float64{1}}}
	model := &fixedModel{result: keypoints.Result{Status: keypoints.Available, Prediction: &keypoints.Prediction{Frames: frames}}}
	res, err := New(DefaultConfig(), syntheticBackend(symmetricClip(48)), model).Analyze(context.Background(), "walk.mp4")
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, gait.RecommendVet, res.Recommendation)
	assert.Nil(t, res.Metrics.Events)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"gsa":null`)
}

func TestConfigFromTuningMatchesDefaults(t *testing.T) {
	cfg, err := ConfigFromTuning(config.EmptyTuningConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("ConfigFromTuning(empty) mismatch (-want +got):\n%s", diff)
	}

	_, err = ConfigFromTuning(&config.TuningConfig{GSAThresholds: []float64{1, 2}})
	assert.Error(t, err)
}

func TestNewFromTuning(t *testing.T) {
	a, err := NewFromTuning(config.EmptyTuningConfig(), syntheticBackend(symmetricClip(48)), "")
	require.NoError(t, err)
	assert.Nil(t, a.model, "no pose command leaves the keypoint path off")

	cmd := "pose-tool --video {video}"
	a, err = NewFromTuning(&config.TuningConfig{PoseModelCommand: &cmd}, Backend{}, "")
	require.NoError(t, err)
	cm, ok := a.model.(*keypoints.CommandModel)
	require.True(t, ok)
	assert.Equal(t, "pose-tool", cm.Name)

	a, err = NewFromTuning(&config.TuningConfig{PoseModelCommand: &cmd}, Backend{}, "other-tool")
	require.NoError(t, err)
	assert.Equal(t, "other-tool", a.model.(*keypoints.CommandModel).Name)
}
