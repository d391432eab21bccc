package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RankService is the only writer of ladder ranks. Every mutation runs with the
// division lock held and inside the caller's transaction.
type RankService struct {
	Deps
	store *store.LadderStore
	locks *ladder.DivisionLocks
}

func NewRankService(deps Deps, store *store.LadderStore, locks *ladder.DivisionLocks) *RankService {
	return &RankService{Deps: deps, store: store, locks: locks}
}

// Register appends a new team at the bottom of its division.
func (s *RankService) Register(ctx context.Context, name string, division league.Division) (*league.LadderEntrant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, league.ErrNameRequired
	}
	if err := validDivision(division); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entrants, err := s.store.ListEntrants(ctx, tx, division)
	if err != nil {
		return nil, fmt.Errorf("failed to load ladder: %w", err)
	}
	l, err := s.ledger(division, entrants)
	if err != nil {
		return nil, err
	}

	entrant := &league.LadderEntrant{
		ID:        uuid.New(),
		Name:      name,
		Division:  division,
		CreatedAt: s.Clock.Now(),
	}
	move, err := l.Append(entrant.ID)
	if err != nil {
		return nil, err
	}
	entrant.Rank = move.NewRank

	if err := s.store.CreateEntrant(ctx, tx, entrant); err != nil {
		return nil, fmt.Errorf("failed to create ladder team: %w", err)
	}
	if err := s.store.CreateRankEvents(ctx, tx, s.events(division, league.ReasonRegistered, []ladder.Move{move})); err != nil {
		return nil, fmt.Errorf("failed to record rank events: %w", err)
	}

	s.Logger.Info().Str("division", string(division)).Str("team", name).Int("rank", entrant.Rank).Msg("ladder team registered")
	return entrant, tx.Commit()
}

// ApplyPenalty is the admin override: drop a team by the given number of places.
func (s *RankService) ApplyPenalty(ctx context.Context, entrantID uuid.UUID, drop int, reason league.RankReason) ([]ladder.Move, error) {
	if drop <= 0 {
		return nil, league.ErrInvalidPenalty
	}
	if reason == "" {
		reason = league.ReasonAdmin
	}

	entrant, err := s.store.GetEntrant(ctx, s.DB, entrantID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(entrant.Division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	moves, err := s.penalize(ctx, tx, entrant.Division, entrantID, drop, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.emit(ctx, penaltyEvent(entrant.Division, "", entrantID, reason, drop))
	return moves, nil
}

// Withdraw removes a team from the ladder and closes the gap it leaves.
func (s *RankService) Withdraw(ctx context.Context, entrantID uuid.UUID) error {
	entrant, err := s.store.GetEntrant(ctx, s.DB, entrantID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(entrant.Division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	entrant, err = s.store.GetEntrant(ctx, tx, entrantID)
	if err != nil {
		return err
	}
	if entrant.LockedBy != nil {
		return league.ErrEntrantLocked
	}

	_, err = s.mutate(ctx, tx, entrant.Division, league.ReasonWithdrawn, func(l *ladder.Ledger) ([]ladder.Move, error) {
		return l.Remove(entrantID)
	})
	if err != nil {
		return err
	}

	s.Logger.Info().Str("division", string(entrant.Division)).Str("team", entrant.Name).Msg("ladder team withdrawn")
	return tx.Commit()
}

// LadderStandings returns a division ordered by rank.
func (s *RankService) LadderStandings(ctx context.Context, division league.Division) ([]league.LadderEntrant, error) {
	entrants, err := s.store.ListEntrants(ctx, s.DB, division)
	if err != nil {
		return nil, fmt.Errorf("failed to load ladder: %w", err)
	}
	if _, err := s.ledger(division, entrants); err != nil {
		return nil, err
	}
	return entrants, nil
}

func (s *RankService) Divisions(ctx context.Context) ([]league.Division, error) {
	return s.store.ListDivisions(ctx, s.DB)
}

func (s *RankService) History(ctx context.Context, entrantID uuid.UUID) ([]league.RankEvent, error) {
	return s.store.ListRankEvents(ctx, s.DB, entrantID)
}

// penalize drops a team inside the caller's transaction. The caller holds the division lock.
func (s *RankService) penalize(ctx context.Context, tx *sqlx.Tx, division league.Division, entrantID uuid.UUID, drop int, reason league.RankReason) ([]ladder.Move, error) {
	moves, err := s.mutate(ctx, tx, division, reason, func(l *ladder.Ledger) ([]ladder.Move, error) {
		return l.ApplyPenalty(entrantID, drop)
	})
	if err != nil {
		return nil, err
	}

	for _, m := range moves {
		if m.EntrantID == entrantID {
			s.Metrics.Penalty(string(division), string(reason), m.NewRank-m.OldRank)
		}
	}
	s.Logger.Info().
		Str("division", string(division)).
		Str("team_id", entrantID.String()).
		Str("reason", string(reason)).
		Int("drop", drop).
		Msg("penalty applied")
	return moves, nil
}

// swap applies a verified ladder result and returns the ledger after the move.
func (s *RankService) swap(ctx context.Context, tx *sqlx.Tx, division league.Division, winner, loser uuid.UUID) (*ladder.Ledger, error) {
	var after *ladder.Ledger
	_, err := s.mutate(ctx, tx, division, league.ReasonSwap, func(l *ladder.Ledger) ([]ladder.Move, error) {
		after = l
		return l.SwapOnResult(winner, loser)
	})
	return after, err
}

// mutate loads the division, applies fn and persists the new permutation with
// one audit row per moved team. A broken permutation aborts the transaction.
func (s *RankService) mutate(ctx context.Context, tx *sqlx.Tx, division league.Division, reason league.RankReason, fn func(*ladder.Ledger) ([]ladder.Move, error)) ([]ladder.Move, error) {
	entrants, err := s.store.ListEntrants(ctx, tx, division)
	if err != nil {
		return nil, fmt.Errorf("failed to load ladder: %w", err)
	}
	l, err := s.ledger(division, entrants)
	if err != nil {
		return nil, err
	}

	moves, err := fn(l)
	if err != nil {
		if errors.Is(err, league.ErrRankInvariant) {
			s.Logger.Error().Err(err).Str("division", string(division)).Msg("rank mutation rejected")
		}
		return nil, err
	}
	if len(moves) == 0 {
		return nil, nil
	}

	// Removed teams must be gone before the remaining ranks are rewritten
	for _, m := range moves {
		if m.NewRank == 0 {
			if err := s.store.DeleteEntrant(ctx, tx, m.EntrantID); err != nil {
				return nil, fmt.Errorf("failed to remove ladder team: %w", err)
			}
		}
	}
	if err := s.store.RewriteRanks(ctx, tx, division, l.Order()); err != nil {
		if errors.Is(err, league.ErrRankInvariant) {
			s.Logger.Error().Err(err).Str("division", string(division)).Msg("rank rewrite rejected")
		}
		return nil, fmt.Errorf("failed to store ranks: %w", err)
	}
	if err := s.store.CreateRankEvents(ctx, tx, s.events(division, reason, moves)); err != nil {
		return nil, fmt.Errorf("failed to record rank events: %w", err)
	}
	return moves, nil
}

func (s *RankService) ledger(division league.Division, entrants []league.LadderEntrant) (*ladder.Ledger, error) {
	l, err := ladder.NewLedger(division, entrants)
	if err != nil {
		s.Logger.Error().Err(err).Str("division", string(division)).Msg("stored ladder is not a dense permutation")
		return nil, err
	}
	return l, nil
}

func (s *RankService) events(division league.Division, reason league.RankReason, moves []ladder.Move) []league.RankEvent {
	now := s.Clock.Now()
	out := make([]league.RankEvent, len(moves))
	for i, m := range moves {
		out[i] = league.RankEvent{
			EntrantID: m.EntrantID,
			Division:  division,
			Reason:    reason,
			OldRank:   m.OldRank,
			NewRank:   m.NewRank,
			CreatedAt: now,
		}
	}
	return out
}

func penaltyEvent(division league.Division, code string, entrantID uuid.UUID, reason league.RankReason, drop int) notify.Event {
	return notify.Event{
		Type:      notify.EventPenaltyApplied,
		Division:  division,
		Challenge: code,
		Entrants:  []uuid.UUID{entrantID},
		Detail:    fmt.Sprintf("%s: down %d", reason, drop),
	}
}

func validDivision(d league.Division) error {
	switch d {
	case league.DivisionMen, league.DivisionWomen, league.DivisionMixed:
		return nil
	}
	return fmt.Errorf("unknown division %q: %w", d, league.ErrDivisionMismatch)
}
