package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/storage/sqlite"
	"github.com/banshee-data/gait.report/internal/jobs"
)

type testEnv struct {
	server   *Server
	svc      *jobs.Service
	store    *sqlite.JobStore
	queue    *jobs.MemoryQueue
	notifier *jobs.Notifier
	uploads  string
}

func newTestEnv(t *testing.T, opts ...jobs.ServiceOption) *testEnv {
	t.Helper()
	dir := t.TempDir()
	database, err := db.NewDB(filepath.Join(dir, "gait.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := sqlite.NewJobStore(database.DB)
	queue := jobs.NewMemoryQueue()
	uploads := filepath.Join(dir, "uploads")
	svc, err := jobs.NewService(store, queue, uploads, opts...)
	require.NoError(t, err)
	notifier := jobs.NewNotifier()
	return &testEnv{
		server:   NewServer(svc, notifier),
		svc:      svc,
		store:    store,
		queue:    queue,
		notifier: notifier,
		uploads:  uploads,
	}
}

func (e *testEnv) insert(t *testing.T, id string, status jobs.Status) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Insert(ctx, &jobs.Job{ID: id, VideoPath: "/tmp/" + id + ".mp4"}))
	now := time.Now()
	if status != jobs.StatusQueued {
		require.NoError(t, e.store.MarkRunning(ctx, id, now))
	}
	switch status {
	case jobs.StatusDone:
		require.NoError(t, e.store.Complete(ctx, id, sampleResult(), now))
	case jobs.StatusError:
		require.NoError(t, e.store.Fail(ctx, id, "input error: cannot open video", now))
	}
}

func sampleResult() *gait.AnalysisResult {
	fps := gait.Number(12)
	sig := &gait.Signals{}
	for i := 0; i < 24; i++ {
		sig.Left = append(sig.Left, 0.1*float64(i%6))
		sig.Right = append(sig.Right, 0.1*float64((i+3)%6))
		sig.Top = append(sig.Top, 0.2)
		sig.Bottom = append(sig.Bottom, 0.3)
	}
	return &gait.AnalysisResult{
		Score:          5,
		Recommendation: gait.RecommendMonitor,
		Metrics: gait.Metrics{
			FPS:           &fps,
			SymmetryIndex: gait.SymmetryIndices{LeftRight: 0},
			GSA:           0,
			Signals:       sig,
		},
		OverlayPoints: []gait.OverlayPoint{},
	}
}

func nan() float64 { return float64(gait.NaN()) }
