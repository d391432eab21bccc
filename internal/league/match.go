package league

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
	MatchBye       MatchStatus = "bye"
	MatchWalkover  MatchStatus = "walkover"
	MatchDisputed  MatchStatus = "disputed"
)

type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Round is a Swiss round. Draft rounds are invisible to standings and pairing history.
type Round struct {
	Number      int        `db:"number"`
	Deadline    time.Time  `db:"deadline"`
	Draft       bool       `db:"draft"`
	CreatedAt   time.Time  `db:"created_at"`
	ConfirmedAt *time.Time `db:"confirmed_at"`
}

type Match struct {
	ID          uuid.UUID `db:"id"`
	RoundNumber int       `db:"round_number"`
	MatchOrder  int       `db:"match_order"`

	TeamAID uuid.UUID  `db:"team_a_id"`
	TeamBID *uuid.UUID `db:"team_b_id"`

	// Canonical score from team A's perspective
	Score    *string    `db:"score"`
	SetsA    int        `db:"sets_a"`
	SetsB    int        `db:"sets_b"`
	GamesA   int        `db:"games_a"`
	GamesB   int        `db:"games_b"`
	WinnerID *uuid.UUID `db:"winner_id"`

	Status MatchStatus `db:"status"`
	Draft  bool        `db:"draft"`

	SubmissionA  *string `db:"submission_a"`
	SubmissionB  *string `db:"submission_b"`
	Verified     bool    `db:"verified"`
	StatsApplied bool    `db:"stats_applied"`
	Notes        *string `db:"notes"`

	DeadlineWarnedAt *time.Time `db:"deadline_warned_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

func (m *Match) IsBye() bool {
	return m.TeamBID == nil
}

// SideOf returns which side the entrant plays on.
func (m *Match) SideOf(entrantID uuid.UUID) (Side, bool) {
	if m.TeamAID == entrantID {
		return SideA, true
	}
	if m.TeamBID != nil && *m.TeamBID == entrantID {
		return SideB, true
	}
	return "", false
}
