package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/db"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a private in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	database, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")
	t.Cleanup(func() { database.Close() })
	return database
}

func inTx(t *testing.T, database *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	t.Helper()
	tx, err := database.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func seedLadder(t *testing.T, database *sqlx.DB, division league.Division, names ...string) []league.LadderEntrant {
	t.Helper()
	ls := NewLadderStore(database)
	entrants := make([]league.LadderEntrant, len(names))
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		for i, n := range names {
			entrants[i] = league.LadderEntrant{
				ID:        uuid.New(),
				Name:      n,
				Division:  division,
				Rank:      i + 1,
				CreatedAt: time.Now().UTC(),
			}
			if err := ls.CreateEntrant(context.Background(), tx, &entrants[i]); err != nil {
				return err
			}
		}
		return nil
	}))
	return entrants
}

func TestTeamStore(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	ts := NewTeamStore(database)

	team := &league.Entrant{
		ID:        uuid.New(),
		Name:      "Smash Bros",
		Division:  league.DivisionMixed,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ts.CreateTeam(ctx, tx, team)
	}))

	team.Wins, team.Points, team.SetsFor, team.GamesFor, team.MatchesPlayed = 1, 3, 2, 12, 1
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		if err := ts.UpdateStats(ctx, tx, team); err != nil {
			return err
		}
		return ts.SetActive(ctx, tx, team.ID, false)
	}))

	fetched, err := ts.GetTeam(ctx, database, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.Name, fetched.Name)
	assert.Equal(t, 3, fetched.Points)
	assert.Equal(t, 12, fetched.GamesFor)
	assert.False(t, fetched.Active)
	assert.WithinDuration(t, team.CreatedAt, fetched.CreatedAt, time.Second)

	_, err = ts.GetTeam(ctx, database, uuid.New())
	assert.ErrorIs(t, err, league.ErrNotFound)
}

func TestRoundLifecycle(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	ts := NewTeamStore(database)
	rs := NewRoundStore(database)

	a := league.Entrant{ID: uuid.New(), Name: "A", Division: league.DivisionMen, Active: true, CreatedAt: time.Now().UTC()}
	b := league.Entrant{ID: uuid.New(), Name: "B", Division: league.DivisionMen, Active: true, CreatedAt: time.Now().UTC()}
	c := league.Entrant{ID: uuid.New(), Name: "C", Division: league.DivisionMen, Active: true, CreatedAt: time.Now().UTC()}

	now := time.Now().UTC()
	matches := []league.Match{
		{ID: uuid.New(), RoundNumber: 1, MatchOrder: 1, TeamAID: a.ID, TeamBID: utils.Ptr(b.ID), Status: league.MatchScheduled, Draft: true, CreatedAt: now},
		{ID: uuid.New(), RoundNumber: 1, MatchOrder: 2, TeamAID: c.ID, Status: league.MatchBye, Draft: true, CreatedAt: now},
	}

	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		for _, team := range []*league.Entrant{&a, &b, &c} {
			if err := ts.CreateTeam(ctx, tx, team); err != nil {
				return err
			}
		}
		if err := rs.CreateRound(ctx, tx, &league.Round{Number: 1, Deadline: now.Add(time.Hour), Draft: true, CreatedAt: now}); err != nil {
			return err
		}
		return rs.CreateMatches(ctx, tx, matches)
	}))

	latest, err := rs.LatestRoundNumber(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 1, latest)

	history, err := rs.ConfirmedPairings(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, history, "draft matches are not history")

	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return rs.ConfirmRound(ctx, tx, 1, now)
	}))

	round, err := rs.GetRound(ctx, database, 1)
	require.NoError(t, err)
	assert.False(t, round.Draft)
	require.NotNil(t, round.ConfirmedAt)

	history, err = rs.ConfirmedPairings(ctx, database)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, matches[0].ID, history[0].ID)

	fetched, err := rs.GetMatches(ctx, database, 1)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.True(t, fetched[1].IsBye())
	assert.False(t, fetched[1].Draft)

	err = inTx(t, database, func(tx *sqlx.Tx) error {
		return rs.DeleteRound(ctx, tx, 1)
	})
	assert.ErrorIs(t, err, league.ErrNotFound, "confirmed rounds cannot be deleted")

	fetched, err = rs.GetMatches(ctx, database, 1)
	require.NoError(t, err)
	assert.Len(t, fetched, 2, "failed delete rolls back the match removal")
}

func TestRewriteRanks(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	ls := NewLadderStore(database)
	entrants := seedLadder(t, database, league.DivisionWomen, "A", "B", "C")

	reversed := []uuid.UUID{entrants[2].ID, entrants[1].ID, entrants[0].ID}
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.RewriteRanks(ctx, tx, league.DivisionWomen, reversed)
	}))

	fetched, err := ls.ListEntrants(ctx, database, league.DivisionWomen)
	require.NoError(t, err)
	require.Len(t, fetched, 3)
	assert.Equal(t, "C", fetched[0].Name)
	assert.Equal(t, 1, fetched[0].Rank)
	assert.Equal(t, "A", fetched[2].Name)

	err = inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.RewriteRanks(ctx, tx, league.DivisionWomen, reversed[:2])
	})
	assert.ErrorIs(t, err, league.ErrRankInvariant)

	fetched, err = ls.ListEntrants(ctx, database, league.DivisionWomen)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{fetched[0].Rank, fetched[1].Rank, fetched[2].Rank}, "rolled back")
}

func TestLockPair(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	ls := NewLadderStore(database)
	e := seedLadder(t, database, league.DivisionMen, "A", "B", "C")

	first, second := uuid.New(), uuid.New()
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.LockPair(ctx, tx, first, e[0].ID, e[1].ID)
	}))

	err := inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.LockPair(ctx, tx, second, e[1].ID, e[2].ID)
	})
	assert.ErrorIs(t, err, league.ErrLockConflict)

	c, err := ls.GetEntrant(ctx, database, e[2].ID)
	require.NoError(t, err)
	assert.Nil(t, c.LockedBy, "partial lock must be rolled back")

	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.Unlock(ctx, tx, first)
	}))
	b, err := ls.GetEntrant(ctx, database, e[1].ID)
	require.NoError(t, err)
	assert.Nil(t, b.LockedBy)
}

func TestSweepMarks(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	ls := NewLadderStore(database)

	_, ok, err := ls.LatestSweepMark(ctx, database, league.DivisionMen, "inactivity")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		if err := ls.CreateSweepMark(ctx, tx, league.DivisionMen, "inactivity", "2025-01", time.Now().UTC()); err != nil {
			return err
		}
		return ls.CreateSweepMark(ctx, tx, league.DivisionMen, "inactivity", "2025-02", time.Now().UTC())
	}))

	period, ok, err := ls.LatestSweepMark(ctx, database, league.DivisionMen, "inactivity")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2025-02", period)

	err = inTx(t, database, func(tx *sqlx.Tx) error {
		return ls.CreateSweepMark(ctx, tx, league.DivisionMen, "inactivity", "2025-02", time.Now().UTC())
	})
	assert.Error(t, err, "a period is only marked once")
}

func TestChallengeStore(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	cs := NewChallengeStore(database)
	e := seedLadder(t, database, league.DivisionMixed, "A", "B")

	now := time.Now().UTC()
	challenge := &league.Challenge{
		ID:                 uuid.New(),
		Code:               "abc123",
		Division:           league.DivisionMixed,
		ChallengerID:       e[1].ID,
		ChallengedID:       e[0].ID,
		Status:             league.ChallengePending,
		AcceptanceDeadline: now.Add(48 * time.Hour),
		CreatedAt:          now,
	}
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return cs.CreateChallenge(ctx, tx, challenge)
	}))

	pending, err := cs.ListChallenges(ctx, database, league.DivisionMixed, league.ChallengePending, league.ChallengeAccepted)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, challenge.Code, pending[0].Code)
	assert.WithinDuration(t, challenge.AcceptanceDeadline, pending[0].AcceptanceDeadline, time.Second)

	challenge.Status = league.ChallengeAccepted
	challenge.AcceptedAt = utils.Ptr(now)
	challenge.CompletionDeadline = utils.Ptr(now.Add(7 * 24 * time.Hour))
	match := &league.LadderMatch{ChallengeID: challenge.ID, UpdatedAt: now}
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		if err := cs.UpdateChallenge(ctx, tx, challenge); err != nil {
			return err
		}
		return cs.CreateLadderMatch(ctx, tx, match)
	}))

	byCode, err := cs.GetChallengeByCode(ctx, database, "abc123")
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeAccepted, byCode.Status)
	require.NotNil(t, byCode.CompletionDeadline)

	match.SubmissionChallenger = utils.Ptr("6-4, 6-4")
	match.Rejections = 1
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return cs.UpdateLadderMatch(ctx, tx, match)
	}))

	fetched, err := cs.GetLadderMatch(ctx, database, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, "6-4, 6-4", utils.OrZero(fetched.SubmissionChallenger))
	assert.Nil(t, fetched.SubmissionChallenged)
	assert.Equal(t, 1, fetched.Rejections)

	completed, err := cs.ListChallenges(ctx, database, league.DivisionMixed, league.ChallengeCompleted)
	require.NoError(t, err)
	assert.Empty(t, completed)

	_, err = cs.GetChallenge(ctx, database, uuid.New())
	assert.ErrorIs(t, err, league.ErrNotFound)
}
