package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/security"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured.
const DefaultMaxUploadBytes = 200 << 20

// Service accepts submissions and answers status queries.
type Service struct {
	store          Store
	queue          Queue
	uploadDir      string
	maxUploadBytes int64
	clock          timeutil.Clock
	newID          func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for job timestamps.
func WithClock(c timeutil.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithMaxUploadBytes sets the upload ceiling. Values <= 0 keep the default.
func WithMaxUploadBytes(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithIDFunc overrides job ID generation.
func WithIDFunc(f func() string) ServiceOption {
	return func(s *Service) { s.newID = f }
}

// NewService creates the upload directory if needed.
func NewService(store Store, queue Queue, uploadDir string, opts ...ServiceOption) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &Service{
		store:          store,
		queue:          queue,
		uploadDir:      uploadDir,
		maxUploadBytes: DefaultMaxUploadBytes,
		clock:          timeutil.RealClock{},
		newID:          func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// MaxUploadBytes is the configured upload ceiling.
func (s *Service) MaxUploadBytes() int64 { return s.maxUploadBytes }

// Submit saves the clip read from r as <job_id><ext> and queues it.
// filename only contributes the extension. Payloads over the ceiling fail
// with ErrUploadTooLarge and leave nothing behind.
func (s *Service) Submit(ctx context.Context, r io.Reader, filename string, params Params) (*Job, error) {
	if params.WithersCM <= 0 {
		params.WithersCM = DefaultWithersCM
	}
	id := s.newID()
	path := filepath.Join(s.uploadDir, id+security.UploadExtension(filename, ".mp4"))
	if err := security.ValidatePathWithinDirectory(path, s.uploadDir); err != nil {
		return nil, err
	}
	if err := s.save(path, r); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id,
		Status:    StatusQueued,
		VideoPath: path,
		Params:    params,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.Insert(ctx, job); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("record job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, id); err != nil {
		os.Remove(path)
		if ferr := s.store.Fail(ctx, id, "could not queue job", s.clock.Now()); ferr != nil {
			monitoring.Logf("[Jobs] job=%s mark failed: %v", id, ferr)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	monitoring.Logf("[Jobs] job=%s queued (%s)", id, filepath.Base(path))
	return job, nil
}

func (s *Service) save(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, s.maxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), err == nil && n > s.maxUploadBytes:
		err = ErrUploadTooLarge
	case err != nil:
		err = fmt.Errorf("write upload: %w", err)
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}

// Status returns the job, or ErrJobNotFound.
func (s *Service) Status(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Health checks the store and the queue.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.queue.Ping(ctx); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	return nil
}

// Recover re-queues jobs left queued or running by a previous process.
// Running jobs go back to the queue; their upload is still on disk because
// it is only removed when a job finishes.
func (s *Service) Recover(ctx context.Context) (int, error) {
	n := 0
	for _, st := range []Status{StatusRunning, StatusQueued} {
		pending, err := s.store.ListByStatus(ctx, st)
		if err != nil {
			return n, err
		}
		for _, job := range pending {
			if _, err := os.Stat(job.VideoPath); err != nil {
				if ferr := s.store.Fail(ctx, job.ID, "upload missing after restart", s.clock.Now()); ferr != nil {
					return n, ferr
				}
				continue
			}
			if err := s.queue.Enqueue(ctx, job.ID); err != nil {
				return n, err
			}
			n++
		}
	}
	if n > 0 {
		monitoring.Logf("[Jobs] re-queued %d unfinished jobs", n)
	}
	return n, nil
}
