package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Status is the lifecycle state reported to pollers.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Finished reports whether no further transitions will happen.
func (s Status) Finished() bool { return s == StatusDone || s == StatusError }

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	// ErrInvalidTransition is returned when a job exists but its status
	// does not allow the requested update.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// DefaultWithersCM is used when a submission does not say.
const DefaultWithersCM = 50.0

// Params are the optional descriptors sent with a clip. They are stored
// with the job for later review; the analysis does not use them.
type Params struct {
	WithersCM  float64 `json:"withers_cm"`
	Breed      string  `json:"breed,omitempty"`
	Age        string  `json:"age,omitempty"`
	Conditions string  `json:"conditions,omitempty"`
}

// Job is one submitted clip and its outcome.
type Job struct {
	ID         string               `json:"job_id"`
	Status     Status               `json:"status"`
	VideoPath  string               `json:"-"`
	Params     Params               `json:"params"`
	Result     *gait.AnalysisResult `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  time.Time            `json:"started_at,omitempty"`
	FinishedAt time.Time            `json:"finished_at,omitempty"`
}

// Store persists jobs. Get returns ErrJobNotFound for unknown IDs.
// MarkRunning applies to queued or running jobs, Complete to running jobs
// and Fail to queued or running jobs; anything else is
// ErrInvalidTransition.
type Store interface {
	Insert(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	MarkRunning(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, result *gait.AnalysisResult, at time.Time) error
	Fail(ctx context.Context, id string, msg string, at time.Time) error
	ListByStatus(ctx context.Context, status Status) ([]*Job, error)
	Ping(ctx context.Context) error
}

// Queue hands job IDs from the submitter to the workers. Dequeue blocks
// until an ID is available or ctx is done.
type Queue interface {
	Enqueue(ctx context.Context, id string) error
	Dequeue(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Analyzer runs the gait pipeline on a clip.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath string) (*gait.AnalysisResult, error)
}
