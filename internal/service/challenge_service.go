package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/score"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/AdamBeresnev/padel-league/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 8
)

type ChallengeService struct {
	Deps
	ladder     *store.LadderStore
	challenges *store.ChallengeStore
	ranks      *RankService
	locks      *ladder.DivisionLocks
	policy     ladder.Policy
}

func NewChallengeService(deps Deps, ladderStore *store.LadderStore, challenges *store.ChallengeStore, ranks *RankService, locks *ladder.DivisionLocks, policy ladder.Policy) *ChallengeService {
	return &ChallengeService{
		Deps:       deps,
		ladder:     ladderStore,
		challenges: challenges,
		ranks:      ranks,
		locks:      locks,
		policy:     policy,
	}
}

// CreateChallenge opens a challenge from a lower-ranked team against one up to
// the band above it and locks both teams until the challenge closes.
func (s *ChallengeService) CreateChallenge(ctx context.Context, challengerID, challengedID uuid.UUID) (*league.Challenge, error) {
	if challengerID == challengedID {
		return nil, league.ErrSelfChallenge
	}

	challenger, err := s.ladder.GetEntrant(ctx, s.DB, challengerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(challenger.Division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if challenger, err = s.ladder.GetEntrant(ctx, tx, challengerID); err != nil {
		return nil, err
	}
	challenged, err := s.ladder.GetEntrant(ctx, tx, challengedID)
	if err != nil {
		return nil, err
	}
	if challenger.Division != challenged.Division {
		return nil, league.ErrDivisionMismatch
	}

	now := s.Clock.Now()
	if challenger.OnHoliday(now) || challenged.OnHoliday(now) {
		return nil, league.ErrOnHoliday
	}
	if challenger.LockedBy != nil || challenged.LockedBy != nil {
		return nil, league.ErrEntrantLocked
	}
	if !s.policy.InBand(challenger.Rank, challenged.Rank) {
		return nil, fmt.Errorf("rank %d cannot challenge rank %d: %w", challenger.Rank, challenged.Rank, league.ErrInvalidBand)
	}

	code, err := gonanoid.Generate(codeAlphabet, codeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge code: %w", err)
	}

	c := &league.Challenge{
		ID:                 uuid.New(),
		Code:               code,
		Division:           challenger.Division,
		ChallengerID:       challengerID,
		ChallengedID:       challengedID,
		Status:             league.ChallengePending,
		AcceptanceDeadline: now.Add(s.policy.AcceptanceWindow),
		CreatedAt:          now,
	}
	if err := s.challenges.CreateChallenge(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	if err := s.ladder.LockPair(ctx, tx, c.ID, challengerID, challengedID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.ChallengeTransition(string(c.Division), string(c.Status))
	s.Logger.Info().
		Str("challenge", c.Code).
		Str("division", string(c.Division)).
		Int("challenger_rank", challenger.Rank).
		Int("challenged_rank", challenged.Rank).
		Msg("challenge created")
	s.emit(ctx, challengeEvent(notify.EventChallengeCreated, c, ""))
	return c, nil
}

// AcceptChallenge is the challenged team agreeing to play. It starts the completion window.
func (s *ChallengeService) AcceptChallenge(ctx context.Context, id, entrantID uuid.UUID) (*league.Challenge, error) {
	return s.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if err := ladder.CheckTransition(c, league.ChallengeAccepted); err != nil {
			return nil, err
		}
		if !c.IsParty(entrantID) {
			return nil, league.ErrNotParty
		}
		if entrantID != c.ChallengedID {
			return nil, fmt.Errorf("only the challenged team can accept: %w", league.ErrInvalidTransition)
		}

		now := s.Clock.Now()
		if now.After(c.AcceptanceDeadline) {
			return nil, fmt.Errorf("acceptance closed at %s: %w", c.AcceptanceDeadline.Format("2006-01-02 15:04"), league.ErrDeadlinePassed)
		}

		c.Status = league.ChallengeAccepted
		c.AcceptedAt = &now
		c.CompletionDeadline = utils.Ptr(now.Add(s.policy.CompletionWindow))
		if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("failed to update challenge: %w", err)
		}
		if err := s.challenges.CreateLadderMatch(ctx, tx, &league.LadderMatch{ChallengeID: c.ID, UpdatedAt: now}); err != nil {
			return nil, fmt.Errorf("failed to create ladder match: %w", err)
		}
		return []notify.Event{challengeEvent(notify.EventChallengeAccepted, c, "")}, nil
	})
}

// CancelChallenge lets either party call off an accepted challenge. Nobody's rank moves.
func (s *ChallengeService) CancelChallenge(ctx context.Context, id, requestor uuid.UUID) (*league.Challenge, error) {
	return s.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if err := ladder.CheckTransition(c, league.ChallengeCancelled); err != nil {
			return nil, err
		}
		if !c.IsParty(requestor) {
			return nil, league.ErrNotParty
		}
		if c.Status != league.ChallengeAccepted {
			return nil, fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrInvalidTransition)
		}

		if err := s.close(ctx, tx, c, league.ChallengeCancelled); err != nil {
			return nil, err
		}
		return []notify.Event{challengeEvent(notify.EventChallengeCancelled, c, "cancelled by "+requestor.String())}, nil
	})
}

// SubmitLadderScore records one side's result, written from that side's point of view.
// The first disagreement clears the later submission; a second one disputes the challenge.
// Both sides agreeing on a drawn score is refused.
func (s *ChallengeService) SubmitLadderScore(ctx context.Context, id uuid.UUID, side league.LadderSide, raw string) (*league.LadderMatch, error) {
	if !side.Valid() {
		return nil, league.ErrInvalidSide
	}
	submitted, err := score.Parse(raw)
	if err != nil {
		s.Metrics.ScoreSubmission("ladder", "malformed")
		return nil, err
	}

	var match *league.LadderMatch
	result := "pending"
	_, err = s.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if c.Terminal() {
			return nil, fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrChallengeTerminal)
		}
		if c.Status != league.ChallengeAccepted {
			return nil, fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrInvalidTransition)
		}

		m, err := s.challenges.GetLadderMatch(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}
		match = m

		canonical := submitted.String()
		if side == league.Challenger {
			m.SubmissionChallenger = &canonical
		} else {
			m.SubmissionChallenged = &canonical
		}
		m.UpdatedAt = s.Clock.Now()
		events := []notify.Event{challengeEvent(notify.EventScoreSubmitted, c, fmt.Sprintf("%s: %s", side, canonical))}

		if m.SubmissionChallenger == nil || m.SubmissionChallenged == nil {
			return events, s.challenges.UpdateLadderMatch(ctx, tx, m)
		}

		fromChallenger, err := score.Parse(*m.SubmissionChallenger)
		if err != nil {
			return nil, err
		}
		fromChallenged, err := score.Parse(*m.SubmissionChallenged)
		if err != nil {
			return nil, err
		}

		if agreed, ok := score.Reconcile(fromChallenger, fromChallenged); ok {
			// A split-set submission only fails once both sides agree on it.
			if agreed.Result().Outcome == score.Draw {
				return nil, league.ErrDrawNotAllowed
			}
			winner := c.ChallengedID
			if agreed.Result().Outcome == score.Win {
				winner = c.ChallengerID
			}
			m.Verified = true
			if err := s.complete(ctx, tx, c, m, winner, agreed); err != nil {
				return nil, err
			}
			result = "verified"
			return append(events, challengeEvent(notify.EventScoreVerified, c, agreed.String())), nil
		}

		m.Rejections++
		if m.Rejections == 1 {
			if side == league.Challenger {
				m.SubmissionChallenger = nil
			} else {
				m.SubmissionChallenged = nil
			}
			result = "rejected"
			events = append(events, challengeEvent(notify.EventScoreRejected, c, "submissions disagree, resubmit"))
		} else {
			m.Disputed = true
			c.Status = league.ChallengeDisputed
			if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
				return nil, fmt.Errorf("failed to update challenge: %w", err)
			}
			result = "disputed"
			events = append(events, challengeEvent(notify.EventScoreDisputed, c, ""))
		}
		if err := s.challenges.UpdateLadderMatch(ctx, tx, m); err != nil {
			return nil, fmt.Errorf("failed to update ladder match: %w", err)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.ScoreSubmission("ladder", result)
	return match, nil
}

// ReportNoShow records that the opponent did not turn up. The sweep acts on it
// once the completion deadline passes. Reports from both sides cancel out.
func (s *ChallengeService) ReportNoShow(ctx context.Context, id, reporter uuid.UUID) (*league.Challenge, error) {
	return s.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if err := s.requireAccepted(c, reporter); err != nil {
			return nil, err
		}

		eventType := notify.EventNoShowReported
		switch {
		case c.NoShowReporterID == nil:
			c.NoShowReporterID = &reporter
		case *c.NoShowReporterID != reporter:
			c.NoShowDisputed = true
			eventType = notify.EventNoShowDisputed
		}
		if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("failed to update challenge: %w", err)
		}
		return []notify.Event{challengeEvent(eventType, c, "reported by "+reporter.String())}, nil
	})
}

// DisputeNoShow lets the accused team contest a no-show report, leaving the call to an admin.
func (s *ChallengeService) DisputeNoShow(ctx context.Context, id, entrantID uuid.UUID) (*league.Challenge, error) {
	return s.withChallenge(ctx, id, func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error) {
		if err := s.requireAccepted(c, entrantID); err != nil {
			return nil, err
		}
		if c.NoShowReporterID == nil {
			return nil, league.ErrNoShowNotReported
		}
		if *c.NoShowReporterID == entrantID {
			return nil, fmt.Errorf("reporter cannot dispute its own report: %w", league.ErrInvalidTransition)
		}

		c.NoShowDisputed = true
		if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("failed to update challenge: %w", err)
		}
		return []notify.Event{challengeEvent(notify.EventNoShowDisputed, c, "")}, nil
	})
}

func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*league.Challenge, error) {
	return s.challenges.GetChallenge(ctx, s.DB, id)
}

func (s *ChallengeService) GetByCode(ctx context.Context, code string) (*league.Challenge, error) {
	return s.challenges.GetChallengeByCode(ctx, s.DB, code)
}

func (s *ChallengeService) Match(ctx context.Context, id uuid.UUID) (*league.LadderMatch, error) {
	return s.challenges.GetLadderMatch(ctx, s.DB, id)
}

// List returns a division's challenges. No statuses means the open ones.
func (s *ChallengeService) List(ctx context.Context, division league.Division, statuses ...league.ChallengeStatus) ([]league.Challenge, error) {
	if len(statuses) == 0 {
		statuses = []league.ChallengeStatus{
			league.ChallengePending,
			league.ChallengeAccepted,
			league.ChallengeDisputed,
			league.ChallengeDefaulted,
		}
	}
	return s.challenges.ListChallenges(ctx, s.DB, division, statuses...)
}

func (s *ChallengeService) requireAccepted(c *league.Challenge, entrantID uuid.UUID) error {
	if c.Terminal() {
		return fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrChallengeTerminal)
	}
	if !c.IsParty(entrantID) {
		return league.ErrNotParty
	}
	if c.Status != league.ChallengeAccepted {
		return fmt.Errorf("challenge %s is %s: %w", c.Code, c.Status, league.ErrInvalidTransition)
	}
	return nil
}

// withChallenge runs fn on a freshly loaded challenge with its division locked
// and inside one transaction. Events are only sent once the transaction commits.
func (s *ChallengeService) withChallenge(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, c *league.Challenge) ([]notify.Event, error)) (*league.Challenge, error) {
	c, err := s.challenges.GetChallenge(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(c.Division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if c, err = s.challenges.GetChallenge(ctx, tx, id); err != nil {
		return nil, err
	}
	before := c.Status

	events, err := fn(tx, c)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if c.Status != before {
		s.Metrics.ChallengeTransition(string(c.Division), string(c.Status))
		s.Logger.Info().
			Str("challenge", c.Code).
			Str("from", string(before)).
			Str("to", string(c.Status)).
			Msg("challenge transition")
	}
	s.emit(ctx, events...)
	return c, nil
}

// complete settles a challenge with a winner: the ledger swap, the rank
// movement on the match, and the release of both teams. sc is the agreed score
// from the challenger's perspective and may be nil when an admin only names a winner.
func (s *ChallengeService) complete(ctx context.Context, tx *sqlx.Tx, c *league.Challenge, m *league.LadderMatch, winner uuid.UUID, sc score.Score) error {
	if err := ladder.CheckTransition(c, league.ChallengeCompleted); err != nil {
		return err
	}
	if !c.IsParty(winner) {
		return league.ErrNotParty
	}
	loser := c.Opponent(winner)

	winnerBefore, err := s.ladder.GetEntrant(ctx, tx, winner)
	if err != nil {
		return err
	}
	loserBefore, err := s.ladder.GetEntrant(ctx, tx, loser)
	if err != nil {
		return err
	}

	after, err := s.ranks.swap(ctx, tx, c.Division, winner, loser)
	if err != nil {
		return err
	}
	winnerRank, _ := after.Rank(winner)
	loserRank, _ := after.Rank(loser)

	if sc != nil {
		r := sc.Result()
		m.Score = utils.Ptr(sc.String())
		m.SetsChallenger, m.SetsChallenged = r.SetsWon, r.SetsLost
		m.GamesChallenger, m.GamesChallenged = r.GamesWon, r.GamesLost
	}
	now := s.Clock.Now()
	m.WinnerID = &winner
	m.WinnerOldRank, m.WinnerNewRank = utils.Ptr(winnerBefore.Rank), utils.Ptr(winnerRank)
	m.LoserOldRank, m.LoserNewRank = utils.Ptr(loserBefore.Rank), utils.Ptr(loserRank)
	m.UpdatedAt = now
	if err := s.challenges.UpdateLadderMatch(ctx, tx, m); err != nil {
		return fmt.Errorf("failed to update ladder match: %w", err)
	}

	c.Status = league.ChallengeCompleted
	c.NeedsAdmin = false
	c.CompletedAt = &now
	if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	if err := s.ladder.Unlock(ctx, tx, c.ID); err != nil {
		return fmt.Errorf("failed to unlock teams: %w", err)
	}
	if err := s.ladder.IncrementMatches(ctx, tx, winner, loser); err != nil {
		return fmt.Errorf("failed to count matches: %w", err)
	}
	return nil
}

// close ends a challenge without a result and releases both teams.
func (s *ChallengeService) close(ctx context.Context, tx *sqlx.Tx, c *league.Challenge, status league.ChallengeStatus) error {
	if err := ladder.CheckTransition(c, status); err != nil {
		return err
	}

	now := s.Clock.Now()
	c.Status = status
	c.NeedsAdmin = false
	c.CompletedAt = &now
	if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	if err := s.ladder.Unlock(ctx, tx, c.ID); err != nil {
		return fmt.Errorf("failed to unlock teams: %w", err)
	}
	return nil
}

func challengeEvent(t notify.EventType, c *league.Challenge, detail string) notify.Event {
	return notify.Event{
		Type:      t,
		Division:  c.Division,
		Challenge: c.Code,
		Entrants:  []uuid.UUID{c.ChallengerID, c.ChallengedID},
		Detail:    detail,
	}
}
