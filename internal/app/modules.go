// Package app wires the league together with fx.
package app

import (
	"context"
	"os"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/config"
	"github.com/AdamBeresnev/padel-league/internal/db"
	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/logger"
	"github.com/AdamBeresnev/padel-league/internal/metrics"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/scheduler"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideLogger() zerolog.Logger {
	return logger.New(os.Getenv("LOG_LEVEL"))
}

func ProvideDB(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*sqlx.DB, error) {
	database, err := db.InitDB(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := database.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
	return database, nil
}

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func ProvideClock() scheduler.Clock {
	return scheduler.SystemClock{}
}

func ProvideLocks() *ladder.DivisionLocks {
	return &ladder.DivisionLocks{}
}

func ProvideLadderPolicy(cfg *config.Config) ladder.Policy {
	return cfg.League.Ladder
}

func ProvideSwissPolicy(cfg *config.Config) config.SwissPolicy {
	return cfg.League.Swiss
}

func ProvideUserService(deps service.Deps, users *store.UserStore, cfg *config.Config) *service.UserService {
	return service.NewUserService(deps, users, cfg.AdminEmails)
}

// ProvideHub runs the websocket hub for the lifetime of the app.
func ProvideHub(lc fx.Lifecycle, logger zerolog.Logger) *notify.Hub {
	hub := notify.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return hub
}

func ProvideNotifier(logger zerolog.Logger, hub *notify.Hub) notify.Notifier {
	return notify.Multi{notify.NewLogNotifier(logger), hub}
}

// ProvideSweepRunner starts the deadline and penalty sweep on the configured interval.
func ProvideSweepRunner(lc fx.Lifecycle, cfg *config.Config, clock scheduler.Clock, sweep *service.SweepService, logger zerolog.Logger) *scheduler.Runner {
	runner := scheduler.NewRunner("sweep", cfg.SweepInterval, clock, func(ctx context.Context, now time.Time) error {
		_, err := sweep.Run(ctx, now)
		return err
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runner.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			runner.Stop()
			return nil
		},
	})
	return runner
}

// Core is everything the league needs except a notify.Notifier, which CLI and
// Web provide.
var Core = fx.Options(
	fx.Provide(ProvideLogger),
	fx.Provide(config.Load),
	fx.Provide(ProvideDB),
	fx.Provide(ProvideRegistry),
	fx.Provide(ProvideMetrics),
	fx.Provide(ProvideClock),
	fx.Provide(ProvideLocks),
	fx.Provide(ProvideLadderPolicy),
	fx.Provide(ProvideSwissPolicy),
	fx.Provide(service.NewDeps),
	// stores
	fx.Provide(store.NewTeamStore),
	fx.Provide(store.NewRoundStore),
	fx.Provide(store.NewLadderStore),
	fx.Provide(store.NewChallengeStore),
	fx.Provide(store.NewUserStore),
	// svc
	fx.Provide(service.NewSwissService),
	fx.Provide(service.NewRankService),
	fx.Provide(service.NewChallengeService),
	fx.Provide(service.NewHolidayService),
	fx.Provide(service.NewSweepService),
	fx.Provide(service.NewDisputeService),
	fx.Provide(ProvideUserService),
)

// CLI sends events to the log only.
var CLI = fx.Options(
	Core,
	fx.Provide(func(logger zerolog.Logger) notify.Notifier {
		return notify.NewLogNotifier(logger)
	}),
)

// Web adds the websocket hub and the background sweep.
var Web = fx.Options(
	Core,
	fx.Provide(ProvideHub),
	fx.Provide(ProvideNotifier),
	fx.Provide(ProvideSweepRunner),
	fx.Invoke(func(*scheduler.Runner) {}),
)
