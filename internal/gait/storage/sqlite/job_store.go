package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/jobs"
)

// JobStore persists analysis jobs in the gait_jobs table.
type JobStore struct {
	db *sql.DB
}

var (
	_ jobs.Store  = (*JobStore)(nil)
	_ jobs.Purger = (*JobStore)(nil)
)

// NewJobStore creates a new JobStore over a migrated database.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `job_id, status, video_path, params_json, result_json, error,
	created_at, started_at, finished_at`

// Insert records a new job. CreatedAt defaults to now.
func (s *JobStore) Insert(ctx context.Context, job *jobs.Job) error {
	if job.ID == "" {
		return fmt.Errorf("insert job: empty id")
	}
	if job.Status == "" {
		job.Status = jobs.StatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO gait_jobs (job_id, status, video_path, params_json, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			job.ID, string(job.Status), job.VideoPath, string(params), job.CreatedAt.UnixNano(),
		)
		return err
	})
}

// Get returns the job, or jobs.ErrJobNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM gait_jobs WHERE job_id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// MarkRunning moves a queued (or re-queued running) job to running.
func (s *JobStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `
		UPDATE gait_jobs SET status = 'running', started_at = ?
		WHERE job_id = ? AND status IN ('queued', 'running')`,
		at.UnixNano(), id)
}

// Complete stores the result of a running job.
func (s *JobStore) Complete(ctx context.Context, id string, result *gait.AnalysisResult, at time.Time) error {
	if result == nil {
		return fmt.Errorf("complete job %s: nil result", id)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.transition(ctx, id, `
		UPDATE gait_jobs SET status = 'done', result_json = ?, error = NULL, finished_at = ?
		WHERE job_id = ? AND status = 'running'`,
		string(payload), at.UnixNano(), id)
}

// Fail stores msg on a queued or running job.
func (s *JobStore) Fail(ctx context.Context, id string, msg string, at time.Time) error {
	return s.transition(ctx, id, `
		UPDATE gait_jobs SET status = 'error', error = ?, result_json = NULL, finished_at = ?
		WHERE job_id = ? AND status IN ('queued', 'running')`,
		msg, at.UnixNano(), id)
}

func (s *JobStore) transition(ctx context.Context, id, query string, args ...interface{}) error {
	return retryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return s.missingOrInvalid(ctx, id)
		}
		return nil
	})
}

// missingOrInvalid explains an UPDATE that matched no row.
func (s *JobStore) missingOrInvalid(ctx context.Context, id string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM gait_jobs WHERE job_id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidTransition, id, status)
}

// ListByStatus returns jobs in status, oldest first.
func (s *JobStore) ListByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM gait_jobs
		WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// DeleteFinishedBefore removes done and error jobs finished before cutoff.
func (s *JobStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := retryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM gait_jobs
			WHERE status IN ('done', 'error') AND finished_at < ?`, cutoff.UnixNano())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Ping checks the database is reachable.
func (s *JobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*jobs.Job, error) {
	var (
		job               jobs.Job
		status, params    string
		result, errMsg    sql.NullString
		created           int64
		started, finished sql.NullInt64
	)
	if err := row.Scan(&job.ID, &status, &job.VideoPath, &params, &result, &errMsg,
		&created, &started, &finished); err != nil {
		return nil, err
	}
	job.Status = jobs.Status(status)
	job.Error = errMsg.String
	job.CreatedAt = time.Unix(0, created)
	if started.Valid {
		job.StartedAt = time.Unix(0, started.Int64)
	}
	if finished.Valid {
		job.FinishedAt = time.Unix(0, finished.Int64)
	}
	if params != "" {
		if err := json.Unmarshal([]byte(params), &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params for %s: %w", job.ID, err)
		}
	}
	if result.Valid && result.String != "" {
		job.Result = new(gait.AnalysisResult)
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result for %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

// retryOnBusy retries f while SQLite reports the database as locked.
func retryOnBusy(f func() error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = f()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
