package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RoundStore struct {
	db *sqlx.DB
}

func NewRoundStore(db *sqlx.DB) *RoundStore {
	return &RoundStore{db: db}
}

const (
	createMatchQuery = `
		INSERT INTO matches (id, round_number, match_order, team_a_id, team_b_id, score, sets_a, sets_b,
			games_a, games_b, winner_id, status, draft, submission_a, submission_b, verified, stats_applied, notes, created_at)
		VALUES (:id, :round_number, :match_order, :team_a_id, :team_b_id, :score, :sets_a, :sets_b,
			:games_a, :games_b, :winner_id, :status, :draft, :submission_a, :submission_b, :verified, :stats_applied, :notes, :created_at)
	`
	updateMatchQuery = `
		UPDATE matches SET
			score = :score,
			sets_a = :sets_a,
			sets_b = :sets_b,
			games_a = :games_a,
			games_b = :games_b,
			winner_id = :winner_id,
			status = :status,
			submission_a = :submission_a,
			submission_b = :submission_b,
			verified = :verified,
			stats_applied = :stats_applied,
			notes = :notes
		WHERE id = :id
	`
)

func (s *RoundStore) CreateRound(ctx context.Context, tx *sqlx.Tx, round *league.Round) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rounds (number, deadline, draft, created_at, confirmed_at)
		VALUES (:number, :deadline, :draft, :created_at, :confirmed_at)`, round)
	return err
}

func (s *RoundStore) GetRound(ctx context.Context, q DBTX, number int) (*league.Round, error) {
	var round league.Round
	if err := q.GetContext(ctx, &round, "SELECT * FROM rounds WHERE number = ?", number); err != nil {
		return nil, notFound(err, "round %d", number)
	}
	return &round, nil
}

func (s *RoundStore) ListRounds(ctx context.Context, q DBTX) ([]league.Round, error) {
	var rounds []league.Round
	err := q.SelectContext(ctx, &rounds, "SELECT * FROM rounds ORDER BY number ASC")
	return rounds, err
}

// LatestRoundNumber counts draft rounds too, so a pending draft blocks reusing its number.
func (s *RoundStore) LatestRoundNumber(ctx context.Context, q DBTX) (int, error) {
	var n int
	err := q.GetContext(ctx, &n, "SELECT COALESCE(MAX(number), 0) FROM rounds")
	return n, err
}

func (s *RoundStore) ConfirmRound(ctx context.Context, tx *sqlx.Tx, number int, at time.Time) error {
	res, err := tx.ExecContext(ctx, "UPDATE rounds SET draft = 0, confirmed_at = ? WHERE number = ? AND draft = 1", at, number)
	if err != nil {
		return err
	}
	if err := expectRows(res, 1, "draft round"); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE matches SET draft = 0 WHERE round_number = ?", number)
	return err
}

func (s *RoundStore) DeleteRound(ctx context.Context, tx *sqlx.Tx, number int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE round_number = ?", number); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM rounds WHERE number = ? AND draft = 1", number)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "draft round")
}

func (s *RoundStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []league.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createMatchQuery, matches)
	return err
}

func (s *RoundStore) GetMatches(ctx context.Context, q DBTX, round int) ([]league.Match, error) {
	var matches []league.Match
	err := q.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE round_number = ? ORDER BY match_order ASC", round)
	return matches, err
}

func (s *RoundStore) GetMatch(ctx context.Context, q DBTX, id uuid.UUID) (*league.Match, error) {
	var match league.Match
	if err := q.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, notFound(err, "match %s", id)
	}
	return &match, nil
}

func (s *RoundStore) UpdateMatch(ctx context.Context, tx *sqlx.Tx, match *league.Match) error {
	res, err := tx.NamedExecContext(ctx, updateMatchQuery, match)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "match "+match.ID.String())
}

// ConfirmedPairings returns the two-sided matches of confirmed rounds, the pairing history.
func (s *RoundStore) ConfirmedPairings(ctx context.Context, q DBTX) ([]league.Match, error) {
	var matches []league.Match
	err := q.SelectContext(ctx, &matches, `SELECT * FROM matches
		WHERE draft = 0 AND team_b_id IS NOT NULL
		ORDER BY round_number ASC, match_order ASC`)
	return matches, err
}

func (s *RoundStore) MarkDeadlineWarned(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, "UPDATE matches SET deadline_warned_at = ? WHERE id = ? AND deadline_warned_at IS NULL", at, id)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "match "+id.String())
}
