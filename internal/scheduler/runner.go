package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one periodic unit of work, called with the clock's current time.
type Job func(ctx context.Context, now time.Time) error

// Runner calls a Job once on start and then on every tick until stopped.
type Runner struct {
	name     string
	interval time.Duration
	clock    Clock
	job      Job
	logger   zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRunner(name string, interval time.Duration, clock Clock, job Job, logger zerolog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		clock:    clock,
		job:      job,
		logger:   logger.With().Str("runner", name).Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop in its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("starting runner")

	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop signals the loop and waits for an in-flight run to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped (context cancelled)")
			return
		case <-r.stopChan:
			r.logger.Info().Msg("runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	if err := r.job(ctx, r.clock.Now()); err != nil {
		r.logger.Error().Err(err).Msg("run failed")
		return
	}
	r.logger.Debug().Dur("took", time.Since(start)).Msg("run finished")
}
