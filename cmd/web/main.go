package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/app"
	"github.com/AdamBeresnev/padel-league/internal/config"
	"github.com/AdamBeresnev/padel-league/internal/middleware"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fx.New(
		app.Web,
		fx.Provide(newSessionManager),
		fx.Provide(newServer),
		fx.Invoke(runServer),
	).Run()
}

func newSessionManager(db *sqlx.DB, cfg *config.Config) *scs.SessionManager {
	return middleware.NewSessionManager(db, cfg.SessionLifetime)
}

func runServer(lc fx.Lifecycle, s *server, cfg *config.Config, logger zerolog.Logger) {
	middleware.InitAuth()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
