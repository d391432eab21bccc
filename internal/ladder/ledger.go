// Package ladder holds the rank ledger and the challenge rules of a division ladder.
package ladder

import (
	"fmt"
	"sort"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
)

// Move is one rank change produced by a ledger operation.
// OldRank is 0 for an appended entrant and NewRank is 0 for a removed one.
type Move struct {
	EntrantID uuid.UUID
	OldRank   int
	NewRank   int
}

// Ledger is the dense rank permutation of one division. Index i holds rank i+1.
// It is not safe for concurrent use; callers hold the division lock.
type Ledger struct {
	division league.Division
	order    []uuid.UUID
}

// NewLedger builds a ledger from entrants loaded from storage. A loaded set of
// ranks that is not exactly 1..N is reported as ErrRankInvariant.
func NewLedger(division league.Division, entrants []league.LadderEntrant) (*Ledger, error) {
	sorted := make([]league.LadderEntrant, len(entrants))
	copy(sorted, entrants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	l := &Ledger{division: division, order: make([]uuid.UUID, len(sorted))}
	for i, e := range sorted {
		if e.Division != division {
			return nil, fmt.Errorf("entrant %s belongs to %s, not %s: %w", e.ID, e.Division, division, league.ErrRankInvariant)
		}
		if e.Rank != i+1 {
			return nil, fmt.Errorf("division %s has rank %d at position %d: %w", division, e.Rank, i+1, league.ErrRankInvariant)
		}
		l.order[i] = e.ID
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Division() league.Division {
	return l.division
}

func (l *Ledger) Len() int {
	return len(l.order)
}

// Order returns a copy of the permutation, best rank first.
func (l *Ledger) Order() []uuid.UUID {
	out := make([]uuid.UUID, len(l.order))
	copy(out, l.order)
	return out
}

// Rank returns the 1-based rank of the entrant.
func (l *Ledger) Rank(id uuid.UUID) (int, bool) {
	for i, e := range l.order {
		if e == id {
			return i + 1, true
		}
	}
	return 0, false
}

func (l *Ledger) mustRank(id uuid.UUID) (int, error) {
	r, ok := l.Rank(id)
	if !ok {
		return 0, fmt.Errorf("entrant %s is not ranked in %s: %w", id, l.division, league.ErrNotFound)
	}
	return r, nil
}

// SwapOnResult moves a worse-ranked winner into the loser's rank. Everyone from
// the loser's rank down to the winner's old rank shifts down one place.
// A winner that already ranks above the loser changes nothing.
func (l *Ledger) SwapOnResult(winner, loser uuid.UUID) ([]Move, error) {
	wr, err := l.mustRank(winner)
	if err != nil {
		return nil, err
	}
	lr, err := l.mustRank(loser)
	if err != nil {
		return nil, err
	}
	if wr <= lr {
		return nil, nil
	}
	return l.apply(func(order []uuid.UUID) []uuid.UUID {
		return moveTo(order, wr-1, lr-1)
	})
}

// ApplyPenalty drops the entrant by drop places, clamped to the bottom rank.
// The entrants it passes each move up one place.
func (l *Ledger) ApplyPenalty(id uuid.UUID, drop int) ([]Move, error) {
	if drop <= 0 {
		return nil, league.ErrInvalidPenalty
	}
	r, err := l.mustRank(id)
	if err != nil {
		return nil, err
	}
	target := min(r-1+drop, len(l.order)-1)
	return l.apply(func(order []uuid.UUID) []uuid.UUID {
		return moveTo(order, r-1, target)
	})
}

// Append places a new entrant at rank N+1.
func (l *Ledger) Append(id uuid.UUID) (Move, error) {
	if _, ok := l.Rank(id); ok {
		return Move{}, league.ErrAlreadyOnLadder
	}
	moves, err := l.apply(func(order []uuid.UUID) []uuid.UUID {
		return append(order, id)
	})
	if err != nil {
		return Move{}, err
	}
	return moves[0], nil
}

// Remove takes an entrant off the ladder and closes the gap below it.
func (l *Ledger) Remove(id uuid.UUID) ([]Move, error) {
	r, err := l.mustRank(id)
	if err != nil {
		return nil, err
	}
	return l.apply(func(order []uuid.UUID) []uuid.UUID {
		return append(order[:r-1], order[r:]...)
	})
}

// Validate checks that the permutation holds each entrant exactly once.
// Ranks are positional, so no duplicates means the ranks are exactly 1..N.
func (l *Ledger) Validate() error {
	seen := make(map[uuid.UUID]struct{}, len(l.order))
	for i, id := range l.order {
		if id == uuid.Nil {
			return fmt.Errorf("division %s has an empty slot at rank %d: %w", l.division, i+1, league.ErrRankInvariant)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("division %s ranks %s twice: %w", l.division, id, league.ErrRankInvariant)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// apply runs the mutation on a copy and only keeps it if the result is valid.
func (l *Ledger) apply(mutate func([]uuid.UUID) []uuid.UUID) ([]Move, error) {
	before := l.Order()
	next := &Ledger{division: l.division, order: mutate(l.Order())}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	l.order = next.order
	return diff(before, l.order), nil
}

// moveTo removes the element at from and reinserts it at to.
func moveTo(order []uuid.UUID, from, to int) []uuid.UUID {
	if from == to {
		return order
	}
	id := order[from]
	if from < to {
		copy(order[from:to], order[from+1:to+1])
	} else {
		copy(order[to+1:from+1], order[to:from])
	}
	order[to] = id
	return order
}

func diff(before, after []uuid.UUID) []Move {
	old := make(map[uuid.UUID]int, len(before))
	for i, id := range before {
		old[id] = i + 1
	}

	var moves []Move
	for i, id := range after {
		if old[id] != i+1 {
			moves = append(moves, Move{EntrantID: id, OldRank: old[id], NewRank: i + 1})
		}
		delete(old, id)
	}
	for id, r := range old {
		moves = append(moves, Move{EntrantID: id, OldRank: r})
	}
	return moves
}
