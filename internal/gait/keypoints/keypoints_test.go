package keypoints

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
)

const sampleOutput = `[
  {"coordinates": [[[10, 100], [20, 110], [30, 200]]], "confidence": [[0.9, 0.8, 0.7]]},
  {"coordinates": [[[11, 101], [21, 111], [31, 201]]]},
  {}
]`

func writeFile(t *testing.T, path, body string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestLoadPrediction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.json")
	writeFile(t, path, sampleOutput, time.Now())

	pred, err := LoadPrediction(path)
	require.NoError(t, err)
	require.Len(t, pred.Frames, 3)
	assert.Equal(t, [2]float64{20, 110}, pred.Frames[0].Coordinates[1])
	assert.Equal(t, []float64{0.9, 0.8, 0.7}, pred.Frames[0].Confidence)
	assert.Equal(t, []float64{1, 1, 1}, pred.Frames[1].Confidence)
	assert.Empty(t, pred.Frames[2].Coordinates)

	writeFile(t, path, `{"not": "a list"}`, time.Now())
	_, err = LoadPrediction(path)
	assert.Error(t, err)
}

func TestFindOutputPicksNewest(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "walk.mp4")
	writeFile(t, video, "", time.Now())

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(dir, "walkDLC_resnet50.json"), "[]", base)
	writeFile(t, filepath.Join(dir, "walk_out", "preds.json"), "[]", base.Add(time.Minute))
	writeFile(t, filepath.Join(dir, "other.json"), "[]", base.Add(time.Hour))

	got, err := FindOutput(video)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "walk_out", "preds.json"), got)
}

func TestFindOutputTieBreaksOnPathLength(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "walk.mp4")
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(dir, "walk.json"), "[]", ts)
	writeFile(t, filepath.Join(dir, "walk_longer.json"), "[]", ts)

	got, err := FindOutput(video)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "walk_longer.json"), got)
}

func TestFindOutputNone(t *testing.T) {
	_, err := FindOutput(filepath.Join(t.TempDir(), "walk.mp4"))
	assert.Error(t, err)
}

func TestCommandModelNotConfigured(t *testing.T) {
	r := NewCommandModel("", time.Minute).Predict(context.Background(), "x.mp4")
	assert.Equal(t, Unavailable, r.Status)
	assert.ErrorIs(t, r.Err(), gait.ErrModelUnavailable)

	var nilModel *CommandModel
	assert.Equal(t, Unavailable, nilModel.Predict(context.Background(), "x.mp4").Status)
}

func TestCommandModelRunsAndLoads(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "walk.mp4")

	m := NewCommandModel("dlc-infer --video {video} --out-dir /tmp", time.Minute)
	var gotName string
	var gotArgs []string
	m.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		writeFile(t, filepath.Join(dir, "walk_pose.json"), sampleOutput, time.Now())
		return []byte("ok"), nil
	}

	r := m.Predict(context.Background(), video)
	require.Equal(t, Available, r.Status, r.Reason)
	assert.NoError(t, r.Err())
	assert.Equal(t, "dlc-infer", gotName)
	assert.Equal(t, []string{"--video", video, "--out-dir", "/tmp"}, gotArgs)
	assert.Len(t, r.Prediction.Frames, 3)
}

func TestCommandModelAppendsVideoWithoutPlaceholder(t *testing.T) {
	m := NewCommandModel("pose", 0)
	assert.Equal(t, []string{"clip.mp4"}, m.args("clip.mp4"))
}

func TestCommandModelFailures(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "walk.mp4")

	m := NewCommandModel("pose", time.Minute)
	m.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	}
	r := m.Predict(context.Background(), video)
	assert.Equal(t, Unavailable, r.Status)
	assert.Contains(t, r.Reason, "CUDA out of memory")

	m.Run = func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	r = m.Predict(context.Background(), video)
	assert.Equal(t, Unavailable, r.Status)
	assert.Contains(t, r.Reason, "no pose output")

	writeFile(t, filepath.Join(dir, "walk.json"), "[]", time.Now())
	r = m.Predict(context.Background(), video)
	assert.Equal(t, Unavailable, r.Status)
	assert.Contains(t, r.Reason, "no frames")
}
