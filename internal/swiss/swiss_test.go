package swiss

import (
	"testing"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pool(n int) []league.Entrant {
	out := make([]league.Entrant, n)
	for i := range out {
		out[i] = league.Entrant{ID: uuid.New(), Name: string(rune('A' + i)), Active: true}
	}
	return out
}

func TestPair(t *testing.T) {
	t.Run("pairs neighbours without history", func(t *testing.T) {
		p := pool(4)
		res := Pair(p, NewHistory(), PolicyClosest)

		require.Len(t, res.Pairs, 2)
		assert.Nil(t, res.Bye)
		assert.Empty(t, res.Fallbacks)
		assert.Equal(t, Pairing{A: p[0].ID, B: p[1].ID}, res.Pairs[0])
		assert.Equal(t, Pairing{A: p[2].ID, B: p[3].ID}, res.Pairs[1])
	})

	t.Run("skips earlier opponents", func(t *testing.T) {
		p := pool(4)
		h := NewHistory()
		h.Add(p[0].ID, p[1].ID)

		res := Pair(p, h, PolicyClosest)

		require.Len(t, res.Pairs, 2)
		assert.Empty(t, res.Fallbacks)
		assert.Equal(t, Pairing{A: p[0].ID, B: p[2].ID}, res.Pairs[0])
		assert.Equal(t, Pairing{A: p[1].ID, B: p[3].ID}, res.Pairs[1])
	})

	t.Run("lowest standing gets the bye", func(t *testing.T) {
		p := pool(5)
		res := Pair(p, NewHistory(), PolicyClosest)

		require.NotNil(t, res.Bye)
		assert.Equal(t, p[4].ID, *res.Bye)
		assert.Len(t, res.Pairs, 2)
	})

	t.Run("single entrant only gets a bye", func(t *testing.T) {
		p := pool(1)
		res := Pair(p, NewHistory(), PolicyClosest)

		require.NotNil(t, res.Bye)
		assert.Empty(t, res.Pairs)
	})

	t.Run("empty pool", func(t *testing.T) {
		res := Pair(nil, NewHistory(), PolicyClosest)
		assert.Nil(t, res.Bye)
		assert.Empty(t, res.Pairs)
	})

	t.Run("unavoidable rematch is recorded", func(t *testing.T) {
		p := pool(2)
		h := NewHistory()
		h.Add(p[1].ID, p[0].ID)

		res := Pair(p, h, PolicyClosest)

		require.Len(t, res.Fallbacks, 1)
		assert.Equal(t, Fallback{A: p[0].ID, B: p[1].ID, Reason: FallbackReason}, res.Fallbacks[0])
		assert.Equal(t, Pairing{A: p[0].ID, B: p[1].ID}, res.Pairs[0])
	})
}

func TestFallbackPolicies(t *testing.T) {
	p := pool(4)
	h := NewHistory()
	// A has met everyone; C least often
	h.Add(p[0].ID, p[1].ID)
	h.Add(p[0].ID, p[1].ID)
	h.Add(p[0].ID, p[2].ID)
	h.Add(p[0].ID, p[3].ID)
	h.Add(p[0].ID, p[3].ID)

	closest := Pair(p, h, PolicyClosest)
	assert.Equal(t, p[1].ID, closest.Pairs[0].B)

	fewest := Pair(p, h, PolicyFewestMeetings)
	assert.Equal(t, p[2].ID, fewest.Pairs[0].B)
	require.Len(t, fewest.Fallbacks, 1)
	assert.Equal(t, p[2].ID, fewest.Fallbacks[0].B)
}

func TestParsePolicy(t *testing.T) {
	got, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyClosest, got)

	got, err = ParsePolicy("fewest-meetings")
	require.NoError(t, err)
	assert.Equal(t, PolicyFewestMeetings, got)

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}

func TestPairProperties(t *testing.T) {
	faker := gofakeit.New(7)

	for run := 0; run < 200; run++ {
		m := faker.IntRange(0, 25)
		p := pool(m)
		h := NewHistory()
		for i := 0; i < faker.IntRange(0, m*2); i++ {
			a, b := faker.IntRange(0, m-1), faker.IntRange(0, m-1)
			if a != b {
				h.Add(p[a].ID, p[b].ID)
			}
		}

		res := Pair(p, h, PolicyClosest)

		require.Len(t, res.Pairs, m/2)
		if m%2 == 1 {
			require.NotNil(t, res.Bye)
		} else {
			require.Nil(t, res.Bye)
		}

		seen := map[uuid.UUID]int{}
		if res.Bye != nil {
			seen[*res.Bye]++
		}
		fallbacks := map[pairKey]bool{}
		for _, f := range res.Fallbacks {
			fallbacks[keyOf(f.A, f.B)] = true
		}
		for _, pr := range res.Pairs {
			seen[pr.A]++
			seen[pr.B]++
			if h.Count(pr.A, pr.B) > 0 {
				assert.True(t, fallbacks[keyOf(pr.A, pr.B)], "rematch without fallback on run %d", run)
			}
		}
		assert.Len(t, seen, m)
		for id, n := range seen {
			assert.Equal(t, 1, n, "entrant %s placed %d times", id, n)
		}
	}
}
