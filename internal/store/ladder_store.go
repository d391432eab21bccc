package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LadderStore struct {
	db *sqlx.DB
}

func NewLadderStore(db *sqlx.DB) *LadderStore {
	return &LadderStore{db: db}
}

const (
	createLadderEntrantQuery = `
		INSERT INTO ladder_entrants (id, name, division, rank, locked_by, holiday_start, holiday_end,
			holiday_weeks_penalized, holiday_warned, matches_this_period, created_at)
		VALUES (:id, :name, :division, :rank, :locked_by, :holiday_start, :holiday_end,
			:holiday_weeks_penalized, :holiday_warned, :matches_this_period, :created_at)
	`
	updateHolidayQuery = `
		UPDATE ladder_entrants SET
			holiday_start = :holiday_start,
			holiday_end = :holiday_end,
			holiday_weeks_penalized = :holiday_weeks_penalized,
			holiday_warned = :holiday_warned
		WHERE id = :id
	`
	createRankEventQuery = `
		INSERT INTO rank_events (entrant_id, division, reason, old_rank, new_rank, created_at)
		VALUES (:entrant_id, :division, :reason, :old_rank, :new_rank, :created_at)
	`
)

func (s *LadderStore) CreateEntrant(ctx context.Context, tx *sqlx.Tx, entrant *league.LadderEntrant) error {
	_, err := tx.NamedExecContext(ctx, createLadderEntrantQuery, entrant)
	return err
}

func (s *LadderStore) GetEntrant(ctx context.Context, q DBTX, id uuid.UUID) (*league.LadderEntrant, error) {
	var entrant league.LadderEntrant
	if err := q.GetContext(ctx, &entrant, "SELECT * FROM ladder_entrants WHERE id = ?", id); err != nil {
		return nil, notFound(err, "ladder team %s", id)
	}
	return &entrant, nil
}

// ListEntrants returns a division ordered by rank.
func (s *LadderStore) ListEntrants(ctx context.Context, q DBTX, division league.Division) ([]league.LadderEntrant, error) {
	var entrants []league.LadderEntrant
	err := q.SelectContext(ctx, &entrants, "SELECT * FROM ladder_entrants WHERE division = ? ORDER BY rank ASC", division)
	return entrants, err
}

func (s *LadderStore) ListDivisions(ctx context.Context, q DBTX) ([]league.Division, error) {
	var divisions []league.Division
	err := q.SelectContext(ctx, &divisions, "SELECT DISTINCT division FROM ladder_entrants ORDER BY division ASC")
	return divisions, err
}

func (s *LadderStore) DeleteEntrant(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM ladder_entrants WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "ladder team "+id.String())
}

// RewriteRanks stores a full division permutation. Ranks are negated first so the
// UNIQUE(division, rank) constraint never sees two rows sharing a rank mid-update.
func (s *LadderStore) RewriteRanks(ctx context.Context, tx *sqlx.Tx, division league.Division, order []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET rank = -rank WHERE division = ?", division); err != nil {
		return fmt.Errorf("failed to park ranks: %w", err)
	}
	for i, id := range order {
		res, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET rank = ? WHERE id = ? AND division = ?", i+1, id, division)
		if err != nil {
			return fmt.Errorf("failed to set rank %d: %w", i+1, err)
		}
		if err := expectRows(res, 1, "ladder team "+id.String()); err != nil {
			return err
		}
	}

	var parked int
	if err := tx.GetContext(ctx, &parked, "SELECT COUNT(*) FROM ladder_entrants WHERE division = ? AND rank <= 0", division); err != nil {
		return err
	}
	if parked > 0 {
		return fmt.Errorf("%d teams in %s missing from the new order: %w", parked, division, league.ErrRankInvariant)
	}
	return nil
}

// LockPair locks both entrants for a challenge. Either both rows flip or the
// caller must roll back: one row means a concurrent challenge got there first.
func (s *LadderStore) LockPair(ctx context.Context, tx *sqlx.Tx, challengeID, a, b uuid.UUID) error {
	res, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET locked_by = ? WHERE id IN (?, ?) AND locked_by IS NULL", challengeID, a, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 2 {
		return league.ErrLockConflict
	}
	return nil
}

// Unlock releases every entrant held by the challenge.
func (s *LadderStore) Unlock(ctx context.Context, tx *sqlx.Tx, challengeID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET locked_by = NULL WHERE locked_by = ?", challengeID)
	return err
}

func (s *LadderStore) UpdateHoliday(ctx context.Context, tx *sqlx.Tx, entrant *league.LadderEntrant) error {
	res, err := tx.NamedExecContext(ctx, updateHolidayQuery, entrant)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "ladder team "+entrant.ID.String())
}

func (s *LadderStore) IncrementMatches(ctx context.Context, tx *sqlx.Tx, ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET matches_this_period = matches_this_period + 1 WHERE id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

func (s *LadderStore) ResetMatches(ctx context.Context, tx *sqlx.Tx, division league.Division) error {
	_, err := tx.ExecContext(ctx, "UPDATE ladder_entrants SET matches_this_period = 0 WHERE division = ?", division)
	return err
}

func (s *LadderStore) CreateRankEvents(ctx context.Context, tx *sqlx.Tx, events []league.RankEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createRankEventQuery, events)
	return err
}

func (s *LadderStore) ListRankEvents(ctx context.Context, q DBTX, entrantID uuid.UUID) ([]league.RankEvent, error) {
	var events []league.RankEvent
	err := q.SelectContext(ctx, &events, "SELECT * FROM rank_events WHERE entrant_id = ? ORDER BY id ASC", entrantID)
	return events, err
}

// LatestSweepMark returns the most recent period recorded for a division and kind.
func (s *LadderStore) LatestSweepMark(ctx context.Context, q DBTX, division league.Division, kind string) (string, bool, error) {
	var period string
	err := q.GetContext(ctx, &period, "SELECT period FROM sweep_marks WHERE division = ? AND kind = ? ORDER BY period DESC LIMIT 1", division, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return period, true, nil
}

func (s *LadderStore) CreateSweepMark(ctx context.Context, tx *sqlx.Tx, division league.Division, kind, period string, at time.Time) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO sweep_marks (division, kind, period, created_at) VALUES (?, ?, ?, ?)", division, kind, period, at)
	return err
}
