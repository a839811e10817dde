package jobs

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/gait.report/internal/gait"
)

type memStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	pingErr error
}

func newMemStore() *memStore { return &memStore{jobs: make(map[string]*Job)} }

func (s *memStore) Insert(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate %s", job.ID)
	}
	cp := *job
	if cp.Status == "" {
		cp.Status = StatusQueued
	}
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	cp := *j
	return &cp, nil
}

func (s *memStore) update(id string, from []Status, f func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !slices.Contains(from, j.Status) {
		return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, j.Status)
	}
	f(j)
	return nil
}

func (s *memStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.update(id, []Status{StatusQueued, StatusRunning}, func(j *Job) { j.Status, j.StartedAt = StatusRunning, at })
}

func (s *memStore) Complete(ctx context.Context, id string, r *gait.AnalysisResult, at time.Time) error {
	return s.update(id, []Status{StatusRunning}, func(j *Job) { j.Status, j.Result, j.Error, j.FinishedAt = StatusDone, r, "", at })
}

func (s *memStore) Fail(ctx context.Context, id, msg string, at time.Time) error {
	return s.update(id, []Status{StatusQueued, StatusRunning}, func(j *Job) { j.Status, j.Result, j.Error, j.FinishedAt = StatusError, nil, msg, at })
}

func (s *memStore) ListByStatus(ctx context.Context, st Status) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Job
	for _, j := range s.jobs {
		if j.Status == st {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *memStore) Ping(ctx context.Context) error { return s.pingErr }

// funcAnalyzer adapts a function to Analyzer.
type funcAnalyzer func(ctx context.Context, path string) (*gait.AnalysisResult, error)

func (f funcAnalyzer) Analyze(ctx context.Context, path string) (*gait.AnalysisResult, error) {
	return f(ctx, path)
}

func okResult() *gait.AnalysisResult {
	return &gait.AnalysisResult{Score: 5, Recommendation: gait.RecommendMonitor}
}

type failingQueue struct{ MemoryQueue }

func (q *failingQueue) Enqueue(ctx context.Context, id string) error {
	return fmt.Errorf("broker down")
}
