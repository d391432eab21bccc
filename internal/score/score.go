// Package score parses and compares padel set scores such as "6-4, 3-6, 10-8".
package score

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/padel-league/internal/league"
)

const (
	MinSets = 2
	MaxSets = 3

	maxGames = 99
)

var setPattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)

// Set holds the games won by each side, A first.
type Set struct {
	A int
	B int
}

// Score is an ordered list of sets from one side's perspective.
type Score []Set

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

// Result is what a score means once derived: who won and by how much.
type Result struct {
	SetsWon   int
	SetsLost  int
	GamesWon  int
	GamesLost int
	Outcome   Outcome
}

// Parse accepts comma and/or whitespace separated "a-b" set tokens.
func Parse(raw string) (Score, error) {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == ';'
	})
	if len(tokens) < MinSets || len(tokens) > MaxSets {
		return nil, fmt.Errorf("%w: expected %d to %d sets, got %d", league.ErrMalformedScore, MinSets, MaxSets, len(tokens))
	}

	s := make(Score, 0, len(tokens))
	for i, tok := range tokens {
		m := setPattern.FindStringSubmatch(tok)
		if m == nil {
			return nil, fmt.Errorf("%w: set %d %q is not in games-games form", league.ErrMalformedScore, i+1, tok)
		}
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if a > maxGames || b > maxGames {
			return nil, fmt.Errorf("%w: set %d has too many games", league.ErrMalformedScore, i+1)
		}
		if a == b {
			return nil, fmt.Errorf("%w: set %d is tied", league.ErrMalformedScore, i+1)
		}
		s = append(s, Set{A: a, B: b})
	}
	return s, nil
}

// MustParse is for fixed scores known to be valid, like the walkover default.
func MustParse(raw string) Score {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// String renders the canonical form, e.g. "6-4, 3-6, 10-8".
func (s Score) String() string {
	parts := make([]string, len(s))
	for i, set := range s {
		parts[i] = fmt.Sprintf("%d-%d", set.A, set.B)
	}
	return strings.Join(parts, ", ")
}

// Invert returns the same score from the other side's perspective.
func (s Score) Invert() Score {
	inv := make(Score, len(s))
	for i, set := range s {
		inv[i] = Set{A: set.B, B: set.A}
	}
	return inv
}

func (s Score) Result() Result {
	var r Result
	for _, set := range s {
		r.GamesWon += set.A
		r.GamesLost += set.B
		if set.A > set.B {
			r.SetsWon++
		} else if set.B > set.A {
			r.SetsLost++
		}
	}
	switch {
	case r.SetsWon > r.SetsLost:
		r.Outcome = Win
	case r.SetsLost > r.SetsWon:
		r.Outcome = Loss
	default:
		r.Outcome = Draw
	}
	return r
}

// Agrees compares derived results, so "6-4 6-3" and "6-4, 6-3" agree
// regardless of formatting. Both scores must share a perspective.
func (s Score) Agrees(other Score) bool {
	return s.Result() == other.Result()
}

// Reconcile takes each side's own-perspective submission and reports whether
// they describe the same match. The returned score is from side A's perspective.
func Reconcile(fromA, fromB Score) (Score, bool) {
	asA := fromB.Invert()
	if !fromA.Agrees(asA) {
		return nil, false
	}
	return fromA, true
}
