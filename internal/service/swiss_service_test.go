package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTeams(t *testing.T, h *harness, names ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, len(names))
	for i, n := range names {
		team, err := h.swiss.RegisterTeam(context.Background(), n, league.DivisionMixed)
		require.NoError(t, err)
		ids[i] = team.ID
	}
	return ids
}

func TestGenerateRoundValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.swiss.GenerateRound(ctx, 1)
	assert.ErrorIs(t, err, league.ErrEmptyPool)
	rounds, err := h.swiss.Rounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, rounds)

	registerTeams(t, h, "A", "B", "C", "D")

	_, err = h.swiss.GenerateRound(ctx, 0)
	assert.ErrorIs(t, err, league.ErrRoundOutOfOrder)

	_, err = h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)

	_, err = h.swiss.GenerateRound(ctx, 1)
	assert.ErrorIs(t, err, league.ErrRoundExists)

	// The draft has to be confirmed or discarded first
	_, err = h.swiss.GenerateRound(ctx, 2)
	assert.ErrorIs(t, err, league.ErrRoundOutOfOrder)
}

func TestDiscardDraftLeavesStatsUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B", "C")

	before, err := h.swiss.ComputeStandings(ctx, "", false)
	require.NoError(t, err)

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, draft.Matches, 2)
	for _, m := range draft.Matches {
		assert.True(t, m.Draft)
	}

	// Scores cannot be entered on a draft
	_, err = h.swiss.SubmitMatchScore(ctx, draft.Matches[0].ID, league.SideA, "6-4, 6-4")
	assert.ErrorIs(t, err, league.ErrMatchNotOpen)

	require.NoError(t, h.swiss.DiscardRound(ctx, 1))

	after, err := h.swiss.ComputeStandings(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = h.swiss.GetRound(ctx, 1)
	assert.ErrorIs(t, err, league.ErrNotFound)
	assert.Zero(t, h.events.count(notify.EventRoundConfirmed))

	// The number is free again
	_, err = h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
}

func TestConfirmRoundCreditsBye(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B", "C")

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, draft.Matches, 2)

	bye := draft.Matches[1]
	require.True(t, bye.IsBye())
	assert.Equal(t, league.MatchBye, bye.Status)

	require.NoError(t, h.swiss.ConfirmRound(ctx, 1))
	assert.ErrorIs(t, h.swiss.ConfirmRound(ctx, 1), league.ErrRoundNotDraft)
	assert.ErrorIs(t, h.swiss.DiscardRound(ctx, 1), league.ErrRoundNotDraft)

	team, err := h.teams.GetTeam(ctx, h.db, bye.TeamAID)
	require.NoError(t, err)
	assert.Equal(t, 1, team.MatchesPlayed)
	assert.Equal(t, 1, team.Wins)
	assert.Equal(t, 3, team.Points)
	assert.Equal(t, 2, team.SetsFor)
	assert.Equal(t, 0, team.SetsAgainst)
	assert.Equal(t, 12, team.GamesFor)
	assert.Equal(t, 0, team.GamesAgainst)

	detail, err := h.swiss.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.False(t, detail.Round.Draft)
	assert.True(t, detail.Matches[1].StatsApplied)
	assert.Equal(t, "6-0, 6-0", *detail.Matches[1].Score)
	assert.Equal(t, 1, h.events.count(notify.EventRoundConfirmed))

	// A bye takes no submissions
	_, err = h.swiss.SubmitMatchScore(ctx, bye.ID, league.SideA, "6-0, 6-0")
	assert.ErrorIs(t, err, league.ErrMatchNotOpen)
}

func TestSubmitMatchScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B")

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.swiss.ConfirmRound(ctx, 1))
	m := draft.Matches[0]

	_, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.Side("c"), "6-4 6-4")
	assert.ErrorIs(t, err, league.ErrInvalidSide)
	_, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.SideA, "six-four")
	assert.ErrorIs(t, err, league.ErrMalformedScore)

	got, err := h.swiss.SubmitMatchScore(ctx, m.ID, league.SideA, "6-4 3-6 10-8")
	require.NoError(t, err)
	assert.Equal(t, league.MatchScheduled, got.Status)
	assert.Equal(t, "6-4, 3-6, 10-8", *got.SubmissionA)

	// Side B writes the same match from its own side
	got, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.SideB, "4-6, 6-3, 8-10")
	require.NoError(t, err)
	assert.Equal(t, league.MatchCompleted, got.Status)
	assert.True(t, got.Verified)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, m.TeamAID, *got.WinnerID)
	assert.Equal(t, 2, got.SetsA)
	assert.Equal(t, 1, got.SetsB)

	a, err := h.teams.GetTeam(ctx, h.db, m.TeamAID)
	require.NoError(t, err)
	b, err := h.teams.GetTeam(ctx, h.db, *m.TeamBID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Points)
	assert.Equal(t, 0, b.Points)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, 20, a.GamesFor)
	assert.Equal(t, 17, a.GamesAgainst)

	_, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.SideA, "6-4 6-4")
	assert.ErrorIs(t, err, league.ErrMatchNotOpen)

	standings, err := h.swiss.ComputeStandings(ctx, league.DivisionMixed, true)
	require.NoError(t, err)
	assert.Equal(t, m.TeamAID, standings[0].ID)
}

func TestSubmitMatchScoreDisagreementDisputes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B")

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.swiss.ConfirmRound(ctx, 1))
	m := draft.Matches[0]

	_, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.SideA, "6-4, 6-4")
	require.NoError(t, err)
	got, err := h.swiss.SubmitMatchScore(ctx, m.ID, league.SideB, "6-4, 6-4")
	require.NoError(t, err)
	assert.Equal(t, league.MatchDisputed, got.Status)
	assert.False(t, got.StatsApplied)
	assert.Equal(t, 1, h.events.count(notify.EventScoreDisputed))

	// The organiser settles it
	got, err = h.swiss.OverrideMatchScore(ctx, m.ID, "6-4, 6-4")
	require.NoError(t, err)
	assert.Equal(t, league.MatchCompleted, got.Status)

	a, err := h.teams.GetTeam(ctx, h.db, m.TeamAID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Points)
}

func TestAwardWalkover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B")

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.swiss.ConfirmRound(ctx, 1))
	m := draft.Matches[0]

	_, err = h.swiss.AwardWalkover(ctx, m.ID, uuid.New())
	assert.ErrorIs(t, err, league.ErrNotParty)

	got, err := h.swiss.AwardWalkover(ctx, m.ID, *m.TeamBID)
	require.NoError(t, err)
	assert.Equal(t, league.MatchWalkover, got.Status)
	assert.Equal(t, "0-6, 0-6", *got.Score)
	assert.Equal(t, *m.TeamBID, *got.WinnerID)

	b, err := h.teams.GetTeam(ctx, h.db, *m.TeamBID)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Points)
	assert.Equal(t, 12, b.GamesFor)

	_, err = h.swiss.SubmitMatchScore(ctx, m.ID, league.SideA, "6-4 6-4")
	assert.ErrorIs(t, err, league.ErrMatchNotOpen)
}

func TestPairingAvoidsConfirmedRematches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerTeams(t, h, "A", "B", "C", "D")

	met := map[[2]uuid.UUID]bool{}
	key := func(a, b uuid.UUID) [2]uuid.UUID {
		if a.String() > b.String() {
			a, b = b, a
		}
		return [2]uuid.UUID{a, b}
	}

	// Four teams can play three rounds without a rematch
	for round := 1; round <= 3; round++ {
		draft, err := h.swiss.GenerateRound(ctx, round)
		require.NoError(t, err)
		assert.Empty(t, draft.Fallbacks, "round %d", round)
		for _, m := range draft.Matches {
			k := key(m.TeamAID, *m.TeamBID)
			assert.False(t, met[k], "rematch in round %d", round)
			met[k] = true
		}
		require.NoError(t, h.swiss.ConfirmRound(ctx, round))
	}

	draft, err := h.swiss.GenerateRound(ctx, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.Fallbacks)
	for _, f := range draft.Fallbacks {
		assert.Equal(t, "repeat matchup unavoidable", f.Reason)
	}
}

func TestInactiveTeamsAreNotPaired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ids := registerTeams(t, h, "A", "B", "C")

	require.NoError(t, h.swiss.SetTeamActive(ctx, ids[2], false))

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, draft.Matches, 1)
	assert.False(t, draft.Matches[0].IsBye())
	for _, m := range draft.Matches {
		assert.NotEqual(t, ids[2], m.TeamAID)
		assert.NotEqual(t, ids[2], *m.TeamBID)
	}
}

func TestGenerateRoundPairsWithinDivision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	division := make(map[uuid.UUID]league.Division)
	for _, team := range []struct {
		name     string
		division league.Division
	}{
		{"A", league.DivisionMen},
		{"B", league.DivisionWomen},
		{"C", league.DivisionMen},
		{"D", league.DivisionWomen},
		{"E", league.DivisionWomen},
	} {
		e, err := h.swiss.RegisterTeam(ctx, team.name, team.division)
		require.NoError(t, err)
		division[e.ID] = team.division
	}

	draft, err := h.swiss.GenerateRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, draft.Matches, 3)

	byes := make(map[league.Division]int)
	for i, m := range draft.Matches {
		assert.Equal(t, i+1, m.MatchOrder)
		if m.IsBye() {
			byes[division[m.TeamAID]]++
			continue
		}
		assert.Equal(t, division[m.TeamAID], division[*m.TeamBID], "teams from different divisions paired")
	}
	assert.Equal(t, map[league.Division]int{league.DivisionWomen: 1}, byes)
}
