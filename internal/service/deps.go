package service

import (
	"context"

	"github.com/AdamBeresnev/padel-league/internal/metrics"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/scheduler"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Deps are the collaborators every league service shares.
type Deps struct {
	DB       *sqlx.DB
	Clock    scheduler.Clock
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func NewDeps(db *sqlx.DB, clock scheduler.Clock, notifier notify.Notifier, m *metrics.Metrics, logger zerolog.Logger) Deps {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return Deps{DB: db, Clock: clock, Notifier: notifier, Metrics: m, Logger: logger}
}

// emit dispatches events once their transaction has committed.
func (d Deps) emit(ctx context.Context, events ...notify.Event) {
	now := d.Clock.Now()
	for _, e := range events {
		if e.At.IsZero() {
			e.At = now
		}
		d.Notifier.Notify(ctx, e)
	}
}
