package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/score"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DisputeView is what an admin sees before deciding: the challenge, both raw
// submissions and, where they parse, the scores they describe.
type DisputeView struct {
	Challenge      league.Challenge
	Match          *league.LadderMatch
	FromChallenger score.Score
	FromChallenged score.Score
}

// Resolution is an admin's decision. Build one with WinnerDeclared or Void.
type Resolution struct {
	winner *uuid.UUID
	score  string
}

// WinnerDeclared completes the challenge for winner. raw is optional and, when
// given, is read from the winner's perspective.
func WinnerDeclared(winner uuid.UUID, raw string) Resolution {
	return Resolution{winner: &winner, score: raw}
}

// Void cancels the challenge with no rank change.
func Void() Resolution {
	return Resolution{}
}

func (r Resolution) IsVoid() bool {
	return r.winner == nil
}

type DisputeService struct {
	Deps
	ladder     *store.LadderStore
	challenges *store.ChallengeStore
	engine     *ChallengeService
}

func NewDisputeService(deps Deps, ladderStore *store.LadderStore, challenges *store.ChallengeStore, engine *ChallengeService) *DisputeService {
	return &DisputeService{Deps: deps, ladder: ladderStore, challenges: challenges, engine: engine}
}

// ListDisputes returns disputed challenges and defaulted ones waiting for an
// admin. An empty division lists every division.
func (s *DisputeService) ListDisputes(ctx context.Context, division league.Division) ([]DisputeView, error) {
	divisions := []league.Division{division}
	if division == "" {
		var err error
		if divisions, err = s.ladder.ListDivisions(ctx, s.DB); err != nil {
			return nil, fmt.Errorf("failed to list divisions: %w", err)
		}
	}

	var views []DisputeView
	for _, d := range divisions {
		challenges, err := s.challenges.ListChallenges(ctx, s.DB, d, league.ChallengeDisputed, league.ChallengeDefaulted)
		if err != nil {
			return nil, fmt.Errorf("failed to list disputes: %w", err)
		}
		for _, c := range challenges {
			if c.Status == league.ChallengeDefaulted && !c.NeedsAdmin {
				continue
			}
			view := DisputeView{Challenge: c}
			if m, err := s.challenges.GetLadderMatch(ctx, s.DB, c.ID); err == nil {
				view.Match = m
				view.FromChallenger = parseOptional(m.SubmissionChallenger)
				view.FromChallenged = parseOptional(m.SubmissionChallenged)
			}
			views = append(views, view)
		}
	}
	return views, nil
}

// ResolveDispute applies exactly one authoritative decision. Resolving a
// challenge that is already closed fails with ErrChallengeTerminal.
func (s *DisputeService) ResolveDispute(ctx context.Context, id uuid.UUID, res Resolution) (*league.Challenge, error) {
	var decided score.Score
	if !res.IsVoid() && res.score != "" {
		sc, err := score.Parse(res.score)
		if err != nil {
			return nil, err
		}
		if sc.Result().Outcome != score.Win {
			return nil, fmt.Errorf("score must be a win for the declared winner: %w", league.ErrInvalidOutcome)
		}
		decided = sc
	}

	return s.engine.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if c.Terminal() {
			return nil, fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrChallengeTerminal)
		}
		if c.Status != league.ChallengeDisputed && !(c.Status == league.ChallengeDefaulted && c.NeedsAdmin) {
			return nil, fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrInvalidTransition)
		}

		if res.IsVoid() {
			if err := s.engine.close(ctx, tx, c, league.ChallengeCancelled); err != nil {
				return nil, err
			}
			s.Logger.Info().Str("challenge", c.Code).Msg("dispute voided")
			return []notify.Event{challengeEvent(notify.EventDisputeResolved, c, "void")}, nil
		}

		winner := *res.winner
		if !c.IsParty(winner) {
			return nil, league.ErrNotParty
		}
		m, err := s.challenges.GetLadderMatch(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}

		// Stored scores are from the challenger's perspective
		sc := decided
		if sc != nil && winner == c.ChallengedID {
			sc = sc.Invert()
		}
		m.Verified = true
		if err := s.engine.complete(ctx, tx, c, m, winner, sc); err != nil {
			return nil, err
		}

		s.Logger.Info().Str("challenge", c.Code).Str("winner", winner.String()).Msg("dispute resolved")
		return []notify.Event{challengeEvent(notify.EventDisputeResolved, c, "winner "+winner.String())}, nil
	})
}

func parseOptional(raw *string) score.Score {
	if raw == nil {
		return nil
	}
	sc, err := score.Parse(*raw)
	if err != nil {
		return nil
	}
	return sc
}
