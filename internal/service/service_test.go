package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/config"
	"github.com/AdamBeresnev/padel-league/internal/db"
	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/scheduler"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

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

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	db     *sqlx.DB
	clock  *scheduler.FakeClock
	events *recorder
	policy config.Policy

	ladder     *store.LadderStore
	challenges *store.ChallengeStore
	teams      *store.TeamStore
	rounds     *store.RoundStore

	ranks    *RankService
	swiss    *SwissService
	engine   *ChallengeService
	holidays *HolidayService
	sweep    *SweepService
	disputes *DisputeService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	database := setupTestDB(t)
	h := &harness{
		db:         database,
		clock:      scheduler.NewFakeClock(epoch),
		events:     &recorder{},
		policy:     config.DefaultPolicy(),
		ladder:     store.NewLadderStore(database),
		challenges: store.NewChallengeStore(database),
		teams:      store.NewTeamStore(database),
		rounds:     store.NewRoundStore(database),
	}

	deps := NewDeps(database, h.clock, h.events, nil, zerolog.Nop())
	locks := &ladder.DivisionLocks{}
	lp := h.policy.Ladder

	h.ranks = NewRankService(deps, h.ladder, locks)
	h.swiss = NewSwissService(deps, h.teams, h.rounds, h.policy.Swiss)
	h.engine = NewChallengeService(deps, h.ladder, h.challenges, h.ranks, locks, lp)
	h.holidays = NewHolidayService(deps, h.ladder, h.ranks, locks, lp)
	h.sweep = NewSweepService(deps, h.ladder, h.challenges, h.ranks, h.holidays, h.swiss, locks, lp)
	h.disputes = NewDisputeService(deps, h.ladder, h.challenges, h.engine)
	return h
}

// seedLadder registers teams in order, so names[0] holds rank 1.
func (h *harness) seedLadder(t *testing.T, division league.Division, names ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, len(names))
	for i, n := range names {
		e, err := h.ranks.Register(context.Background(), n, division)
		require.NoError(t, err)
		require.Equal(t, i+1, e.Rank)
		ids[i] = e.ID
	}
	return ids
}

// order returns a division's team ids, best rank first.
func (h *harness) order(t *testing.T, division league.Division) []uuid.UUID {
	t.Helper()
	entrants, err := h.ranks.LadderStandings(context.Background(), division)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(entrants))
	for i, e := range entrants {
		require.Equal(t, i+1, e.Rank)
		ids[i] = e.ID
	}
	return ids
}

func (h *harness) entrant(t *testing.T, id uuid.UUID) *league.LadderEntrant {
	t.Helper()
	e, err := h.ladder.GetEntrant(context.Background(), h.db, id)
	require.NoError(t, err)
	return e
}

// accepted creates a challenge and has the challenged team accept it.
func (h *harness) accepted(t *testing.T, challenger, challenged uuid.UUID) *league.Challenge {
	t.Helper()
	ctx := context.Background()
	c, err := h.engine.CreateChallenge(ctx, challenger, challenged)
	require.NoError(t, err)
	c, err = h.engine.AcceptChallenge(ctx, c.ID, challenged)
	require.NoError(t, err)
	return c
}
