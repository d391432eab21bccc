package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AdamBeresnev/padel-league/internal/app"
	"github.com/AdamBeresnev/padel-league/internal/scheduler"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

// leagueApp holds the services a command works with.
type leagueApp struct {
	swiss  *service.SwissService
	ranks  *service.RankService
	sweep  *service.SweepService
	clock  scheduler.Clock
	logger zerolog.Logger
}

func main() {
	cliApp := &cli.App{
		Name:  "league",
		Usage: "operate the padel league from the command line",
		Commands: []*cli.Command{
			migrateCommand(),
			sweepCommand(),
			roundCommand(),
			standingsCommand(),
			ladderCommand(),
			exportCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withLeague builds the league for one command and closes the database when
// the command returns.
func withLeague(c *cli.Context, fn func(ctx context.Context, l *leagueApp) error) error {
	l := &leagueApp{}
	fxApp := fx.New(
		app.CLI,
		fx.NopLogger,
		fx.Populate(&l.swiss, &l.ranks, &l.sweep, &l.clock, &l.logger),
	)
	if err := fxApp.Err(); err != nil {
		return fmt.Errorf("failed to build league: %w", err)
	}

	ctx := c.Context
	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("failed to start league: %w", err)
	}
	defer func() {
		if err := fxApp.Stop(context.Background()); err != nil {
			l.logger.Warn().Err(err).Msg("failed to stop cleanly")
		}
	}()

	return fn(ctx, l)
}
