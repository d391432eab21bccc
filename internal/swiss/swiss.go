// Package swiss pairs a standings-ordered pool for one Swiss round.
package swiss

import (
	"fmt"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
)

// FallbackReason is recorded whenever a pairing repeats an earlier matchup.
const FallbackReason = "repeat matchup unavoidable"

type Policy string

const (
	// PolicyClosest pairs with the nearest unpaired entrant by standing.
	PolicyClosest Policy = "closest"
	// PolicyFewestMeetings pairs with the entrant met least often, nearest first.
	PolicyFewestMeetings Policy = "fewest-meetings"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyClosest:
		return PolicyClosest, nil
	case PolicyFewestMeetings:
		return PolicyFewestMeetings, nil
	}
	return "", fmt.Errorf("unknown pairing fallback policy %q", s)
}

type pairKey [2]uuid.UUID

func keyOf(a, b uuid.UUID) pairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pairKey{a, b}
}

// History counts confirmed meetings between entrants.
type History map[pairKey]int

func NewHistory() History {
	return History{}
}

func (h History) Add(a, b uuid.UUID) {
	h[keyOf(a, b)]++
}

func (h History) Count(a, b uuid.UUID) int {
	return h[keyOf(a, b)]
}

type Pairing struct {
	A uuid.UUID
	B uuid.UUID
}

type Fallback struct {
	A      uuid.UUID
	B      uuid.UUID
	Reason string
}

type Result struct {
	Pairs     []Pairing
	Bye       *uuid.UUID
	Fallbacks []Fallback
}

// Pair walks the ordered pool and pairs each unpaired entrant with the first
// later entrant it has not met. On an odd pool the last entrant gets the bye
// before any pairing happens.
func Pair(ordered []league.Entrant, history History, policy Policy) Result {
	var res Result
	if len(ordered) == 0 {
		return res
	}

	pool := ordered
	if len(pool)%2 == 1 {
		bye := pool[len(pool)-1].ID
		res.Bye = &bye
		pool = pool[:len(pool)-1]
	}

	paired := make([]bool, len(pool))
	for i := range pool {
		if paired[i] {
			continue
		}

		j := -1
		for k := i + 1; k < len(pool); k++ {
			if !paired[k] && history.Count(pool[i].ID, pool[k].ID) == 0 {
				j = k
				break
			}
		}

		if j < 0 {
			j = fallback(pool, paired, i, history, policy)
			res.Fallbacks = append(res.Fallbacks, Fallback{
				A:      pool[i].ID,
				B:      pool[j].ID,
				Reason: FallbackReason,
			})
		}

		paired[i], paired[j] = true, true
		res.Pairs = append(res.Pairs, Pairing{A: pool[i].ID, B: pool[j].ID})
	}

	return res
}

// fallback picks a partner for pool[i] once every unpaired candidate is a rematch.
// The pool is even, so at least one later entrant is always unpaired.
func fallback(pool []league.Entrant, paired []bool, i int, history History, policy Policy) int {
	best := -1
	for k := i + 1; k < len(pool); k++ {
		if paired[k] {
			continue
		}
		if best < 0 {
			best = k
			if policy != PolicyFewestMeetings {
				return best
			}
			continue
		}
		if history.Count(pool[i].ID, pool[k].ID) < history.Count(pool[i].ID, pool[best].ID) {
			best = k
		}
	}
	return best
}
