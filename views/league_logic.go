package views

import (
	"sort"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
)

const byeLabel = "BYE"

type MatchRow struct {
	ID     uuid.UUID
	Order  int
	TeamA  string
	TeamB  string
	Score  string
	Status league.MatchStatus
}

type RoundData struct {
	Number   int
	Draft    bool
	Deadline time.Time
	Rows     []MatchRow
}

// PrepareRoundData resolves team names and orders the matches as they were paired.
func PrepareRoundData(round *league.Round, matches []league.Match, teams map[uuid.UUID]league.Entrant) RoundData {
	name := func(id uuid.UUID) string {
		if t, ok := teams[id]; ok {
			return t.Name
		}
		return id.String()
	}

	sorted := make([]league.Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MatchOrder < sorted[j].MatchOrder
	})

	rows := make([]MatchRow, 0, len(sorted))
	for _, m := range sorted {
		row := MatchRow{ID: m.ID, Order: m.MatchOrder, TeamA: name(m.TeamAID), TeamB: byeLabel, Status: m.Status}
		if m.TeamBID != nil {
			row.TeamB = name(*m.TeamBID)
		}
		if m.Score != nil {
			row.Score = *m.Score
		}
		rows = append(rows, row)
	}

	return RoundData{Number: round.Number, Draft: round.Draft, Deadline: round.Deadline, Rows: rows}
}

type LadderStatus string

const (
	LadderAvailable   LadderStatus = "available"
	LadderInChallenge LadderStatus = "in challenge"
	LadderOnHoliday   LadderStatus = "on holiday"
)

type LadderRow struct {
	ID     uuid.UUID
	Rank   int
	Name   string
	Status LadderStatus
	Played int
}

// PrepareLadderData orders entrants by rank. A team on holiday shows as such
// even when it is also locked.
func PrepareLadderData(entrants []league.LadderEntrant, now time.Time) []LadderRow {
	rows := make([]LadderRow, 0, len(entrants))
	for _, e := range entrants {
		status := LadderAvailable
		switch {
		case e.OnHoliday(now):
			status = LadderOnHoliday
		case e.LockedBy != nil:
			status = LadderInChallenge
		}
		rows = append(rows, LadderRow{ID: e.ID, Rank: e.Rank, Name: e.Name, Status: status, Played: e.MatchesThisPeriod})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Rank < rows[j].Rank
	})
	return rows
}
