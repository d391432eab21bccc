package league

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending_acceptance"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeExpired   ChallengeStatus = "expired"
	ChallengeDefaulted ChallengeStatus = "defaulted"
	ChallengeDisputed  ChallengeStatus = "disputed"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

type Challenge struct {
	ID           uuid.UUID       `db:"id"`
	Code         string          `db:"code"`
	Division     Division        `db:"division"`
	ChallengerID uuid.UUID       `db:"challenger_id"`
	ChallengedID uuid.UUID       `db:"challenged_id"`
	Status       ChallengeStatus `db:"status"`

	AcceptanceDeadline time.Time  `db:"acceptance_deadline"`
	CompletionDeadline *time.Time `db:"completion_deadline"`

	NoShowReporterID *uuid.UUID `db:"no_show_reporter_id"`
	NoShowDisputed   bool       `db:"no_show_disputed"`
	NeedsAdmin       bool       `db:"needs_admin"`

	CreatedAt   time.Time  `db:"created_at"`
	AcceptedAt  *time.Time `db:"accepted_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Terminal reports whether no further transition can happen without an admin.
// A defaulted challenge that still needs an admin decision keeps both entrants locked.
func (c *Challenge) Terminal() bool {
	switch c.Status {
	case ChallengeCompleted, ChallengeExpired, ChallengeCancelled:
		return true
	case ChallengeDefaulted:
		return !c.NeedsAdmin
	}
	return false
}

func (c *Challenge) IsParty(entrantID uuid.UUID) bool {
	return c.ChallengerID == entrantID || c.ChallengedID == entrantID
}

// Opponent returns the other party of the challenge.
func (c *Challenge) Opponent(entrantID uuid.UUID) uuid.UUID {
	if c.ChallengerID == entrantID {
		return c.ChallengedID
	}
	return c.ChallengerID
}

// LadderSide identifies a party by role rather than by id.
type LadderSide string

const (
	Challenger LadderSide = "challenger"
	Challenged LadderSide = "challenged"
)

func (s LadderSide) Valid() bool {
	return s == Challenger || s == Challenged
}

type LadderMatch struct {
	ChallengeID uuid.UUID `db:"challenge_id"`

	SubmissionChallenger *string `db:"submission_challenger"`
	SubmissionChallenged *string `db:"submission_challenged"`
	Verified             bool    `db:"verified"`
	Rejections           int     `db:"rejections"`
	Disputed             bool    `db:"disputed"`

	// Score is stored from the challenger's perspective
	Score           *string    `db:"score"`
	SetsChallenger  int        `db:"sets_challenger"`
	SetsChallenged  int        `db:"sets_challenged"`
	GamesChallenger int        `db:"games_challenger"`
	GamesChallenged int        `db:"games_challenged"`
	WinnerID        *uuid.UUID `db:"winner_id"`

	WinnerOldRank *int `db:"winner_old_rank"`
	WinnerNewRank *int `db:"winner_new_rank"`
	LoserOldRank  *int `db:"loser_old_rank"`
	LoserNewRank  *int `db:"loser_new_rank"`

	UpdatedAt time.Time `db:"updated_at"`
}

type RankReason string

const (
	ReasonRegistered RankReason = "registered"
	ReasonSwap       RankReason = "swap"
	ReasonExpiry     RankReason = "acceptance_expired"
	ReasonNoShow     RankReason = "no_show"
	ReasonHoliday    RankReason = "holiday_overstay"
	ReasonInactivity RankReason = "inactivity"
	ReasonAdmin      RankReason = "admin"
	ReasonWithdrawn  RankReason = "withdrawn"
)

// RankEvent is an audit row for every rank the ledger moves.
type RankEvent struct {
	ID        int64      `db:"id"`
	EntrantID uuid.UUID  `db:"entrant_id"`
	Division  Division   `db:"division"`
	Reason    RankReason `db:"reason"`
	OldRank   int        `db:"old_rank"`
	NewRank   int        `db:"new_rank"`
	CreatedAt time.Time  `db:"created_at"`
}
