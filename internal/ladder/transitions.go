package ladder

import (
	"fmt"

	"github.com/AdamBeresnev/padel-league/internal/league"
)

var transitions = map[league.ChallengeStatus][]league.ChallengeStatus{
	league.ChallengePending:   {league.ChallengeAccepted, league.ChallengeExpired},
	league.ChallengeAccepted:  {league.ChallengeCompleted, league.ChallengeDefaulted, league.ChallengeDisputed, league.ChallengeCancelled},
	league.ChallengeDisputed:  {league.ChallengeCompleted, league.ChallengeCancelled},
	league.ChallengeDefaulted: {league.ChallengeCompleted, league.ChallengeCancelled},
}

func CanTransition(from, to league.ChallengeStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrChallengeTerminal for closed challenges and
// ErrInvalidTransition for any move not in the table.
func CheckTransition(c *league.Challenge, to league.ChallengeStatus) error {
	if c.Terminal() {
		return fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrChallengeTerminal)
	}
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("challenge %s cannot move from %s to %s: %w", c.Code, c.Status, to, league.ErrInvalidTransition)
	}
	return nil
}
