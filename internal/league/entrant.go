package league

import (
	"time"

	"github.com/google/uuid"
)

type Division string

const (
	DivisionMen   Division = "men"
	DivisionWomen Division = "women"
	DivisionMixed Division = "mixed"
)

// Entrant is a Swiss league team.
type Entrant struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Division Division  `db:"division"`
	Active   bool      `db:"active"`

	MatchesPlayed int `db:"matches_played"`
	Wins          int `db:"wins"`
	Losses        int `db:"losses"`
	Draws         int `db:"draws"`
	Points        int `db:"points"`
	SetsFor       int `db:"sets_for"`
	SetsAgainst   int `db:"sets_against"`
	GamesFor      int `db:"games_for"`
	GamesAgainst  int `db:"games_against"`

	CreatedAt time.Time `db:"created_at"`
}

func (e *Entrant) SetDiff() int {
	return e.SetsFor - e.SetsAgainst
}

func (e *Entrant) GameDiff() int {
	return e.GamesFor - e.GamesAgainst
}

// LadderEntrant is a team on a division ladder. Rank is owned by the rank ledger.
type LadderEntrant struct {
	ID       uuid.UUID  `db:"id"`
	Name     string     `db:"name"`
	Division Division   `db:"division"`
	Rank     int        `db:"rank"`
	LockedBy *uuid.UUID `db:"locked_by"`

	HolidayStart          *time.Time `db:"holiday_start"`
	HolidayEnd            *time.Time `db:"holiday_end"`
	HolidayWeeksPenalized int        `db:"holiday_weeks_penalized"`
	HolidayWarned         bool       `db:"holiday_warned"`

	MatchesThisPeriod int       `db:"matches_this_period"`
	CreatedAt         time.Time `db:"created_at"`
}

// OnHoliday reports whether the holiday window covers now.
func (e *LadderEntrant) OnHoliday(now time.Time) bool {
	if e.HolidayStart == nil || now.Before(*e.HolidayStart) {
		return false
	}
	return e.HolidayEnd == nil || now.Before(*e.HolidayEnd)
}

// Locked is true while the entrant is in a non-terminal challenge or on holiday.
func (e *LadderEntrant) Locked(now time.Time) bool {
	return e.LockedBy != nil || e.OnHoliday(now)
}
