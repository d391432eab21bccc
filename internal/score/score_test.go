package score

import (
	"testing"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Score
		wantErr  bool
	}{
		{name: "comma separated", input: "6-4, 6-3", expected: Score{{6, 4}, {6, 3}}},
		{name: "no space", input: "6-4,6-3", expected: Score{{6, 4}, {6, 3}}},
		{name: "space separated", input: "6-4 3-6 10-8", expected: Score{{6, 4}, {3, 6}, {10, 8}}},
		{name: "extra whitespace", input: "  7-5 ,  6-7 , 6-2 ", expected: Score{{7, 5}, {6, 7}, {6, 2}}},
		{name: "empty", input: "", wantErr: true},
		{name: "single set", input: "6-4", wantErr: true},
		{name: "too many sets", input: "6-4, 6-4, 6-4, 6-4", wantErr: true},
		{name: "garbage token", input: "6-4, six-three", wantErr: true},
		{name: "tied set", input: "6-6, 6-4", wantErr: true},
		{name: "three digits", input: "100-4, 6-4", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := Parse(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, league.ErrMalformedScore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestStringIsCanonical(t *testing.T) {
	s, err := Parse("6-4   3-6,10-8")
	require.NoError(t, err)
	assert.Equal(t, "6-4, 3-6, 10-8", s.String())
	assert.Equal(t, "4-6, 6-3, 8-10", s.Invert().String())
}

func TestResult(t *testing.T) {
	testCases := []struct {
		input    string
		expected Result
	}{
		{"6-4, 6-3", Result{SetsWon: 2, SetsLost: 0, GamesWon: 12, GamesLost: 7, Outcome: Win}},
		{"6-4, 3-6, 10-8", Result{SetsWon: 2, SetsLost: 1, GamesWon: 19, GamesLost: 18, Outcome: Win}},
		{"4-6, 3-6", Result{SetsWon: 0, SetsLost: 2, GamesWon: 7, GamesLost: 12, Outcome: Loss}},
		{"6-4, 4-6", Result{SetsWon: 1, SetsLost: 1, GamesWon: 10, GamesLost: 10, Outcome: Draw}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, MustParse(tc.input).Result())
		})
	}
}

func TestReconcile(t *testing.T) {
	// Side B reports the same match from its own perspective
	agreed, ok := Reconcile(MustParse("6-4, 6-3"), MustParse("4-6, 3-6"))
	require.True(t, ok)
	assert.Equal(t, "6-4, 6-3", agreed.String())

	// Both claiming the win
	_, ok = Reconcile(MustParse("6-4, 6-3"), MustParse("6-4, 3-6"))
	assert.False(t, ok)

	// Same winner but different games
	_, ok = Reconcile(MustParse("6-4, 6-3"), MustParse("4-6, 2-6"))
	assert.False(t, ok)
}
