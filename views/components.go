package views

import (
	"context"
	"fmt"
	"io"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

const deadlineLayout = "Mon 2 Jan 15:04"

// Page wraps body in the site layout.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script></head><body><nav><a href="/">Standings</a> <a href="/ladder">Ladder</a>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if user := GetUser(ctx); user != nil {
			if user.IsAdmin {
				io.WriteString(w, ` <a href="/admin/disputes">Disputes</a>`)
			}
			fmt.Fprintf(w, ` <span>%s</span> <button hx-post="/logout">Log out</button>`, templ.EscapeString(user.Username))
		} else {
			io.WriteString(w, ` <a href="/login">Log in</a>`)
		}
		fmt.Fprintf(w, `</nav><main><h1>%s</h1>`, templ.EscapeString(title))
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func LoginPage() templ.Component {
	return Page("Log in", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p><a href="/auth/discord">Log in with Discord</a></p><p><a href="/auth/google">Log in with Google</a></p>`)
		return err
	}))
}

// StandingsTable renders Swiss entrants in the order given.
func StandingsTable(entrants []league.Entrant) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, `<table class="standings"><thead><tr><th>Pos</th><th>Team</th><th>P</th><th>W</th><th>D</th><th>L</th><th>Sets</th><th>Games</th><th>Pts</th></tr></thead><tbody>`)
		for i, e := range entrants {
			if _, err := fmt.Fprintf(w, `<tr><td>%d</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%+d</td><td>%+d</td><td>%d</td></tr>`,
				i+1, templ.EscapeString(e.Name), e.MatchesPlayed, e.Wins, e.Draws, e.Losses, e.SetDiff(), e.GameDiff(), e.Points); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

func LadderTable(division league.Division, rows []LadderRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<table class="ladder" data-division="%s"><thead><tr><th>Rank</th><th>Team</th><th>Status</th><th>Matches this month</th></tr></thead><tbody>`,
			templ.EscapeString(string(division)))
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%d</td></tr>`,
				r.Rank, templ.EscapeString(r.Name), r.Status, r.Played); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

func RoundView(data RoundData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		state := "confirmed"
		if data.Draft {
			state = "draft"
		}
		fmt.Fprintf(w, `<section class="round"><h2>Round %d (%s)</h2><p>Deadline %s</p><ol>`,
			data.Number, state, data.Deadline.Format(deadlineLayout))
		for _, r := range data.Rows {
			if _, err := fmt.Fprintf(w, `<li data-match="%s">%s vs %s <span>%s</span> <em>%s</em></li>`,
				r.ID, templ.EscapeString(r.TeamA), templ.EscapeString(r.TeamB), templ.EscapeString(r.Score), r.Status); err != nil {
				return err
			}
		}
		if data.Draft && IsAdmin(ctx) {
			fmt.Fprintf(w, `</ol><button hx-post="/admin/rounds/%d/confirm">Confirm</button> <button hx-post="/admin/rounds/%d/discard">Discard</button></section>`,
				data.Number, data.Number)
			return nil
		}
		_, err := io.WriteString(w, `</ol></section>`)
		return err
	})
}

// DisputeList shows each dispute with both submissions as the teams entered them.
func DisputeList(disputes []service.DisputeView, names map[uuid.UUID]string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(disputes) == 0 {
			_, err := io.WriteString(w, `<p>No open disputes.</p>`)
			return err
		}
		io.WriteString(w, `<ul class="disputes">`)
		for _, d := range disputes {
			c := d.Challenge
			reason := "score disagreement"
			if c.Status == league.ChallengeDefaulted {
				reason = "no-show without a confirmed report"
			}
			if _, err := fmt.Fprintf(w, `<li data-challenge="%s"><strong>%s</strong> %s vs %s, %s: challenger says <code>%s</code>, challenged says <code>%s</code></li>`,
				c.ID, templ.EscapeString(c.Code), templ.EscapeString(names[c.ChallengerID]), templ.EscapeString(names[c.ChallengedID]),
				reason, templ.EscapeString(d.FromChallenger.String()), templ.EscapeString(d.FromChallenged.String())); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// Sections renders each component in turn.
func Sections(components ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range components {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func RoundLinks(rounds []league.Round) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, `<nav class="rounds">`)
		for _, r := range rounds {
			fmt.Fprintf(w, ` <a href="/rounds/%d">Round %d</a>`, r.Number, r.Number)
		}
		_, err := io.WriteString(w, `</nav>`)
		return err
	})
}
