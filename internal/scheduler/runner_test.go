package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerTicksUntilStopped(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	var runs atomic.Int32
	var seen atomic.Value

	r := NewRunner("test", 5*time.Millisecond, clock, func(ctx context.Context, now time.Time) error {
		seen.Store(now)
		if runs.Add(1) == 2 {
			return errors.New("one bad run does not stop the loop")
		}
		return nil
	}, zerolog.Nop())

	r.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	r.Stop()
	r.Stop()

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
	assert.Equal(t, clock.Now(), seen.Load())
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	r := NewRunner("ctx", time.Hour, SystemClock{}, func(ctx context.Context, now time.Time) error {
		runs.Add(1)
		return nil
	}, zerolog.Nop())

	r.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	r.Stop()
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, time.February, clock.Advance(2*time.Hour).Month())

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}
