// Package standings produces the one canonical ordering of Swiss entrants.
// Every surface that shows or uses standings goes through Compute.
package standings

import (
	"sort"
	"strings"

	"github.com/AdamBeresnev/padel-league/internal/league"
)

type Filter struct {
	Division   league.Division
	ActiveOnly bool
}

// Compute orders entrants by points, set difference, game difference, wins,
// then name (case-insensitive). The input slice is not modified.
func Compute(entrants []league.Entrant, filter Filter) []league.Entrant {
	out := make([]league.Entrant, 0, len(entrants))
	for _, e := range entrants {
		if filter.Division != "" && e.Division != filter.Division {
			continue
		}
		if filter.ActiveOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return Less(&out[i], &out[j])
	})
	return out
}

// Less is the tie-break chain. Entrant ID is only reached when two names are
// equal ignoring case, so the order stays total.
func Less(a, b *league.Entrant) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.SetDiff() != b.SetDiff() {
		return a.SetDiff() > b.SetDiff()
	}
	if a.GameDiff() != b.GameDiff() {
		return a.GameDiff() > b.GameDiff()
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID.String() < b.ID.String()
}
