package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/export"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/AdamBeresnev/padel-league/views"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			return withLeague(c, func(ctx context.Context, l *leagueApp) error {
				fmt.Fprintln(c.App.Writer, "database is up to date")
				return nil
			})
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "expire challenges and apply penalties that are due",
		Flags: []cli.Flag{
			&cli.TimestampFlag{
				Name:   "at",
				Usage:  "run the sweep as of this instant instead of now",
				Layout: time.RFC3339,
			},
		},
		Action: func(c *cli.Context) error {
			return withLeague(c, func(ctx context.Context, l *leagueApp) error {
				now := l.clock.Now()
				if at := c.Timestamp("at"); at != nil {
					now = at.UTC()
				}
				report, err := l.sweep.Run(ctx, now)
				if err != nil {
					return err
				}
				printSweepReport(c.App.Writer, now, report)
				return nil
			})
		},
	}
}

func printSweepReport(w io.Writer, now time.Time, r *service.SweepReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "sweep at\t%s\n", now.Format(time.RFC3339))
	fmt.Fprintf(tw, "divisions\t%d\n", r.Divisions)
	fmt.Fprintf(tw, "expired\t%d\n", r.Expired)
	fmt.Fprintf(tw, "defaulted\t%d\n", r.Defaulted)
	fmt.Fprintf(tw, "flagged for admin\t%d\n", r.FlaggedForAdmin)
	fmt.Fprintf(tw, "holiday penalties\t%d\n", r.HolidayPenalties)
	fmt.Fprintf(tw, "holiday warnings\t%d\n", r.HolidayWarnings)
	fmt.Fprintf(tw, "inactivity penalties\t%d\n", r.InactivityPenalties)
	fmt.Fprintf(tw, "deadline warnings\t%d\n", r.DeadlineWarnings)
	tw.Flush()
}

func roundCommand() *cli.Command {
	number := func(c *cli.Context) (int, error) {
		n, err := strconv.Atoi(c.Args().First())
		if err != nil {
			return 0, fmt.Errorf("round number required: %w", err)
		}
		return n, nil
	}

	return &cli.Command{
		Name:  "round",
		Usage: "manage Swiss rounds",
		Subcommands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "pair the active teams into a draft round",
				ArgsUsage: "NUMBER",
				Action: func(c *cli.Context) error {
					n, err := number(c)
					if err != nil {
						return err
					}
					return withLeague(c, func(ctx context.Context, l *leagueApp) error {
						draft, err := l.swiss.GenerateRound(ctx, n)
						if err != nil {
							return err
						}
						detail, err := l.swiss.GetRound(ctx, n)
						if err != nil {
							return err
						}
						printRound(c.App.Writer, detail)
						for _, f := range draft.Fallbacks {
							fmt.Fprintf(c.App.Writer, "repeat pairing %s vs %s: %s\n", detail.Teams[f.A].Name, detail.Teams[f.B].Name, f.Reason)
						}
						return nil
					})
				},
			},
			{
				Name:      "confirm",
				Usage:     "publish a draft round",
				ArgsUsage: "NUMBER",
				Action: func(c *cli.Context) error {
					n, err := number(c)
					if err != nil {
						return err
					}
					return withLeague(c, func(ctx context.Context, l *leagueApp) error {
						if err := l.swiss.ConfirmRound(ctx, n); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "round %d confirmed\n", n)
						return nil
					})
				},
			},
			{
				Name:      "discard",
				Usage:     "throw away a draft round",
				ArgsUsage: "NUMBER",
				Action: func(c *cli.Context) error {
					n, err := number(c)
					if err != nil {
						return err
					}
					return withLeague(c, func(ctx context.Context, l *leagueApp) error {
						if err := l.swiss.DiscardRound(ctx, n); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "round %d discarded\n", n)
						return nil
					})
				},
			},
		},
	}
}

func printRound(w io.Writer, detail *service.RoundDetail) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "round %d\tdeadline %s\n", detail.Round.Number, detail.Round.Deadline.Format(time.RFC3339))
	for _, m := range detail.Matches {
		b := "BYE"
		if m.TeamBID != nil {
			b = detail.Teams[*m.TeamBID].Name
		}
		fmt.Fprintf(tw, "%d\t%s\tvs\t%s\t%s\n", m.MatchOrder, detail.Teams[m.TeamAID].Name, b, m.Status)
	}
	tw.Flush()
}

func standingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "standings",
		Usage: "print the Swiss table",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "division", Usage: "only this division"},
			&cli.BoolFlag{Name: "active", Usage: "only active teams"},
		},
		Action: func(c *cli.Context) error {
			return withLeague(c, func(ctx context.Context, l *leagueApp) error {
				entrants, err := l.swiss.ComputeStandings(ctx, league.Division(c.String("division")), c.Bool("active"))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "POS\tTEAM\tP\tW\tD\tL\tSETS\tGAMES\tPTS")
				for i, e := range entrants {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%+d\t%+d\t%d\n",
						i+1, e.Name, e.MatchesPlayed, e.Wins, e.Draws, e.Losses, e.SetDiff(), e.GameDiff(), e.Points)
				}
				return tw.Flush()
			})
		},
	}
}

func ladderCommand() *cli.Command {
	return &cli.Command{
		Name:      "ladder",
		Usage:     "print a division's ladder",
		ArgsUsage: "DIVISION",
		Action: func(c *cli.Context) error {
			division := league.Division(c.Args().First())
			return withLeague(c, func(ctx context.Context, l *leagueApp) error {
				entrants, err := l.ranks.LadderStandings(ctx, division)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tTEAM\tSTATUS\tMATCHES")
				for _, row := range views.PrepareLadderData(entrants, l.clock.Now()) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", row.Rank, row.Name, row.Status, row.Played)
				}
				return tw.Flush()
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the Swiss table and every ladder to a spreadsheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "standings.xlsx", Usage: "output file"},
		},
		Action: func(c *cli.Context) error {
			return withLeague(c, func(ctx context.Context, l *leagueApp) error {
				swiss, err := l.swiss.ComputeStandings(ctx, "", false)
				if err != nil {
					return err
				}
				divisions, err := l.ranks.Divisions(ctx)
				if err != nil {
					return err
				}
				now := l.clock.Now()
				sheets := make([]export.LadderSheet, 0, len(divisions))
				for _, d := range divisions {
					entrants, err := l.ranks.LadderStandings(ctx, d)
					if err != nil {
						return err
					}
					sheets = append(sheets, export.LadderSheet{Division: d, Entrants: entrants, AsOf: now})
				}

				f, err := os.Create(c.String("out"))
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", c.String("out"), err)
				}
				defer f.Close()
				if err := export.WriteStandings(f, swiss, sheets); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
				return nil
			})
		},
	}
}
