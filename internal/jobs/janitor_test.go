package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/timeutil"
)

type recordingPurger struct {
	cutoffs chan time.Time
	err     error
}

func (p *recordingPurger) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs <- cutoff
	return 2, p.err
}

func TestJanitorPurgeOnce(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	p := &recordingPurger{cutoffs: make(chan time.Time, 1)}
	j := NewJanitor(p, 24*time.Hour, 0, timeutil.NewMockClock(t0))

	n, err := j.PurgeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, (<-p.cutoffs).Equal(t0.Add(-24*time.Hour)))

	p.err = errors.New("database is locked")
	_, err = j.PurgeOnce(context.Background())
	assert.Error(t, err)
}

func TestJanitorRunPurgesOnTicks(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	clock := timeutil.NewMockClock(t0)
	p := &recordingPurger{cutoffs: make(chan time.Time, 4)}
	j := NewJanitor(p, time.Hour, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	first := <-p.cutoffs
	assert.True(t, first.Equal(t0.Add(-time.Hour)))

	var second time.Time
	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		select {
		case second = <-p.cutoffs:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.True(t, second.After(first))

	cancel()
	<-done
}

func TestJanitorZeroRetentionDisabled(t *testing.T) {
	p := &recordingPurger{cutoffs: make(chan time.Time, 1)}
	NewJanitor(p, 0, time.Minute, nil).Run(context.Background())
	assert.Empty(t, p.cutoffs)
}
