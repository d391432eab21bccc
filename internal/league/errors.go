package league

import "errors"

var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation: the caller's fault, nothing was changed
	ErrInvalidBand       = errors.New("challenged team is outside the allowed rank band")
	ErrSelfChallenge     = errors.New("a team cannot challenge itself")
	ErrDivisionMismatch  = errors.New("teams are in different divisions")
	ErrEntrantLocked     = errors.New("team is already in an active challenge")
	ErrOnHoliday         = errors.New("team is on holiday")
	ErrMalformedScore    = errors.New("malformed score")
	ErrDrawNotAllowed    = errors.New("ladder matches cannot end in a draw")
	ErrChallengeTerminal = errors.New("challenge is already closed")
	ErrInvalidTransition = errors.New("action not allowed in the current challenge state")
	ErrNotParty          = errors.New("team is not part of this challenge")
	ErrDeadlinePassed    = errors.New("deadline has passed")
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidPenalty    = errors.New("penalty must be positive")
	ErrInvalidOutcome    = errors.New("invalid dispute outcome")
	ErrRoundExists       = errors.New("round already exists")
	ErrRoundOutOfOrder   = errors.New("round number must follow the latest round")
	ErrRoundNotDraft     = errors.New("round is not a draft")
	ErrMatchNotOpen      = errors.New("match is not accepting scores")
	ErrEmptyPool         = errors.New("no active teams to pair")
	ErrInvalidHoliday    = errors.New("holiday end must be after its start")
	ErrAlreadyOnLadder   = errors.New("team is already on the ladder")
	ErrNameRequired      = errors.New("team name is required")
	ErrNotOnHoliday      = errors.New("team is not on holiday")
	ErrNoShowNotReported = errors.New("no no-show has been reported")

	// Conflict: a concurrent request won the race
	ErrLockConflict = errors.New("team was locked by a concurrent challenge")

	// Consistency: must never happen, the mutation is aborted
	ErrRankInvariant = errors.New("rank permutation invariant violated")
)
