package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
)

func queuedJob(t *testing.T, store *memStore, id string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), id+".mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, store.Insert(context.Background(), &Job{ID: id, Status: StatusQueued, VideoPath: path}))
	return path
}

func TestProcessSuccess(t *testing.T) {
	store := newMemStore()
	path := queuedJob(t, store, "j1")
	n := NewNotifier()
	updates, cancel := n.Subscribe("j1")
	defer cancel()

	var seen string
	w := NewWorker(store, NewMemoryQueue(), funcAnalyzer(func(ctx context.Context, p string) (*gait.AnalysisResult, error) {
		seen = p
		return okResult(), nil
	}), WorkerConfig{Notifier: n})

	require.NoError(t, w.Process(context.Background(), "j1"))
	assert.Equal(t, path, seen)

	j, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, j.Status)
	require.NotNil(t, j.Result)
	assert.Equal(t, 5.0, j.Result.Score)
	assert.False(t, j.StartedAt.IsZero())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "upload removed")

	assert.Equal(t, Update{JobID: "j1", Status: StatusRunning}, <-updates)
	assert.Equal(t, Update{JobID: "j1", Status: StatusDone}, <-updates)
}

func TestProcessFailure(t *testing.T) {
	store := newMemStore()
	path := queuedJob(t, store, "j1")
	w := NewWorker(store, NewMemoryQueue(), funcAnalyzer(func(ctx context.Context, p string) (*gait.AnalysisResult, error) {
		return nil, fmt.Errorf("%w: not enough frames: sampled 5, need 8", gait.ErrInsufficientData)
	}), WorkerConfig{})

	require.NoError(t, w.Process(context.Background(), "j1"))
	j, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, j.Status)
	assert.Contains(t, j.Error, "not enough frames")
	assert.Nil(t, j.Result)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessTimeout(t *testing.T) {
	store := newMemStore()
	queuedJob(t, store, "j1")
	w := NewWorker(store, NewMemoryQueue(), funcAnalyzer(func(ctx context.Context, p string) (*gait.AnalysisResult, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: analysis stopped: %v", gait.ErrInput, ctx.Err())
	}), WorkerConfig{Timeout: 10 * time.Millisecond})

	require.NoError(t, w.Process(context.Background(), "j1"))
	j, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, j.Status)
	assert.Contains(t, j.Error, "analysis terminated")
}

func TestProcessShutdownLeavesJobForRecovery(t *testing.T) {
	store := newMemStore()
	path := queuedJob(t, store, "j1")
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(store, NewMemoryQueue(), funcAnalyzer(func(c context.Context, p string) (*gait.AnalysisResult, error) {
		cancel()
		<-c.Done()
		return nil, c.Err()
	}), WorkerConfig{})

	assert.ErrorIs(t, w.Process(ctx, "j1"), context.Canceled)
	j, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, j.Status)
	_, err = os.Stat(path)
	assert.NoError(t, err, "upload kept for retry")
}

func TestProcessSkipsFinished(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Insert(context.Background(), &Job{ID: "j1", Status: StatusDone}))
	called := false
	w := NewWorker(store, NewMemoryQueue(), funcAnalyzer(func(ctx context.Context, p string) (*gait.AnalysisResult, error) {
		called = true
		return okResult(), nil
	}), WorkerConfig{})
	require.NoError(t, w.Process(context.Background(), "j1"))
	assert.False(t, called)
	assert.ErrorIs(t, w.Process(context.Background(), "missing"), ErrJobNotFound)
}

func TestWorkerRunDrainsQueue(t *testing.T) {
	store := newMemStore()
	q := NewMemoryQueue()
	for _, id := range []string{"a", "b", "c"} {
		queuedJob(t, store, id)
		require.NoError(t, q.Enqueue(context.Background(), id))
	}
	w := NewWorker(store, q, funcAnalyzer(func(ctx context.Context, p string) (*gait.AnalysisResult, error) {
		return okResult(), nil
	}), WorkerConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		done, _ := store.ListByStatus(context.Background(), StatusDone)
		return len(done) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
