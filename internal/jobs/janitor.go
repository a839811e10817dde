package jobs

import (
	"context"
	"time"

	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// DefaultPurgeInterval is how often the Janitor looks for expired jobs.
const DefaultPurgeInterval = time.Hour

// Purger deletes finished jobs. The SQLite job store implements it.
type Purger interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor removes done and error jobs once they are older than the
// retention period.
type Janitor struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	clock     timeutil.Clock
}

// NewJanitor creates a Janitor. A non-positive interval uses
// DefaultPurgeInterval; a nil clock uses the real clock.
func NewJanitor(p Purger, retention, interval time.Duration, clock timeutil.Clock) *Janitor {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Janitor{purger: p, retention: retention, interval: interval, clock: clock}
}

// PurgeOnce deletes jobs that finished before now minus the retention.
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, error) {
	n, err := j.purger.DeleteFinishedBefore(ctx, j.clock.Now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		monitoring.Logf("[Janitor] purged %d finished jobs older than %v", n, j.retention)
	}
	return n, nil
}

// Run purges immediately and then on every interval until ctx is done.
// A zero retention disables it.
func (j *Janitor) Run(ctx context.Context) {
	if j.retention <= 0 {
		return
	}
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		if _, err := j.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
			monitoring.Logf("[Janitor] purge failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
	}
}
