package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// DefaultJobTimeout bounds a single analysis.
const DefaultJobTimeout = 15 * time.Minute

// WorkerConfig configures a worker pool.
type WorkerConfig struct {
	Workers  int
	Timeout  time.Duration
	Clock    timeutil.Clock
	Notifier *Notifier
}

// Worker pulls job IDs off a queue and runs them. Each job gets its own
// analysis pass; nothing mutable is shared between concurrent jobs.
type Worker struct {
	store    Store
	queue    Queue
	analyzer Analyzer
	cfg      WorkerConfig
}

// NewWorker applies defaults to cfg.
func NewWorker(store Store, queue Queue, analyzer Analyzer, cfg WorkerConfig) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultJobTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Worker{store: store, queue: queue, analyzer: analyzer, cfg: cfg}
}

// Run blocks until ctx is cancelled and every worker goroutine has
// returned. A job in flight when ctx ends is abandoned, not failed, so
// Recover picks it up on the next start.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.loop(ctx, n)
		}(i)
	}
	monitoring.Logf("[Worker] started %d workers (timeout %v)", w.cfg.Workers, w.cfg.Timeout)
	wg.Wait()
	monitoring.Logf("[Worker] stopped")
}

func (w *Worker) loop(ctx context.Context, n int) {
	for {
		id, err := w.queue.Dequeue(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrQueueClosed) {
			return
		}
		if err != nil {
			monitoring.Logf("[Worker %d] dequeue failed: %v", n, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := w.Process(ctx, id); err != nil {
			monitoring.Logf("[Worker %d] job=%s: %v", n, id, err)
		}
	}
}

// Process runs one job to completion. The returned error concerns the
// bookkeeping only; analysis failures are recorded on the job.
func (w *Worker) Process(ctx context.Context, id string) error {
	job, err := w.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Finished() {
		return nil
	}
	if err := w.store.MarkRunning(ctx, id, w.cfg.Clock.Now()); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	w.cfg.Notifier.Publish(Update{JobID: id, Status: StatusRunning})

	start := w.cfg.Clock.Now()
	runCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	result, err := w.analyzer.Analyze(runCtx, job.VideoPath)
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	cancel()

	if ctx.Err() != nil && !timedOut {
		// Shutdown, not a job failure: leave it running for Recover.
		return ctx.Err()
	}
	if rerr := os.Remove(job.VideoPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		monitoring.Logf("[Worker] job=%s remove upload: %v", id, rerr)
	}

	now := w.cfg.Clock.Now()
	if err != nil {
		msg := err.Error()
		if timedOut {
			msg = fmt.Sprintf("analysis terminated: exceeded job timeout of %v", w.cfg.Timeout)
		}
		if ferr := w.store.Fail(ctx, id, msg, now); ferr != nil {
			return fmt.Errorf("record failure: %w", ferr)
		}
		w.cfg.Notifier.Publish(Update{JobID: id, Status: StatusError, Error: msg})
		monitoring.Logf("[Worker] job=%s failed after %v: %s", id, now.Sub(start).Round(time.Millisecond), msg)
		return nil
	}
	if err := w.store.Complete(ctx, id, result, now); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	w.cfg.Notifier.Publish(Update{JobID: id, Status: StatusDone})
	monitoring.Logf("[Worker] job=%s done in %v score=%.1f", id, now.Sub(start).Round(time.Millisecond), result.Score)
	return nil
}
