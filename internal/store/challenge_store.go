package store

import (
	"context"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ChallengeStore struct {
	db *sqlx.DB
}

func NewChallengeStore(db *sqlx.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

const (
	createChallengeQuery = `
		INSERT INTO challenges (id, code, division, challenger_id, challenged_id, status, acceptance_deadline,
			completion_deadline, no_show_reporter_id, no_show_disputed, needs_admin, created_at, accepted_at, completed_at)
		VALUES (:id, :code, :division, :challenger_id, :challenged_id, :status, :acceptance_deadline,
			:completion_deadline, :no_show_reporter_id, :no_show_disputed, :needs_admin, :created_at, :accepted_at, :completed_at)
	`
	updateChallengeQuery = `
		UPDATE challenges SET
			status = :status,
			completion_deadline = :completion_deadline,
			no_show_reporter_id = :no_show_reporter_id,
			no_show_disputed = :no_show_disputed,
			needs_admin = :needs_admin,
			accepted_at = :accepted_at,
			completed_at = :completed_at
		WHERE id = :id
	`
	createLadderMatchQuery = `
		INSERT INTO ladder_matches (challenge_id, submission_challenger, submission_challenged, verified, rejections,
			disputed, score, sets_challenger, sets_challenged, games_challenger, games_challenged, winner_id,
			winner_old_rank, winner_new_rank, loser_old_rank, loser_new_rank, updated_at)
		VALUES (:challenge_id, :submission_challenger, :submission_challenged, :verified, :rejections,
			:disputed, :score, :sets_challenger, :sets_challenged, :games_challenger, :games_challenged, :winner_id,
			:winner_old_rank, :winner_new_rank, :loser_old_rank, :loser_new_rank, :updated_at)
	`
	updateLadderMatchQuery = `
		UPDATE ladder_matches SET
			submission_challenger = :submission_challenger,
			submission_challenged = :submission_challenged,
			verified = :verified,
			rejections = :rejections,
			disputed = :disputed,
			score = :score,
			sets_challenger = :sets_challenger,
			sets_challenged = :sets_challenged,
			games_challenger = :games_challenger,
			games_challenged = :games_challenged,
			winner_id = :winner_id,
			winner_old_rank = :winner_old_rank,
			winner_new_rank = :winner_new_rank,
			loser_old_rank = :loser_old_rank,
			loser_new_rank = :loser_new_rank,
			updated_at = :updated_at
		WHERE challenge_id = :challenge_id
	`
)

func (s *ChallengeStore) CreateChallenge(ctx context.Context, tx *sqlx.Tx, challenge *league.Challenge) error {
	_, err := tx.NamedExecContext(ctx, createChallengeQuery, challenge)
	return err
}

func (s *ChallengeStore) GetChallenge(ctx context.Context, q DBTX, id uuid.UUID) (*league.Challenge, error) {
	var challenge league.Challenge
	if err := q.GetContext(ctx, &challenge, "SELECT * FROM challenges WHERE id = ?", id); err != nil {
		return nil, notFound(err, "challenge %s", id)
	}
	return &challenge, nil
}

func (s *ChallengeStore) GetChallengeByCode(ctx context.Context, q DBTX, code string) (*league.Challenge, error) {
	var challenge league.Challenge
	if err := q.GetContext(ctx, &challenge, "SELECT * FROM challenges WHERE code = ?", code); err != nil {
		return nil, notFound(err, "challenge %s", code)
	}
	return &challenge, nil
}

func (s *ChallengeStore) UpdateChallenge(ctx context.Context, tx *sqlx.Tx, challenge *league.Challenge) error {
	res, err := tx.NamedExecContext(ctx, updateChallengeQuery, challenge)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "challenge "+challenge.Code)
}

// ListChallenges returns a division's challenges in any of the given statuses, oldest first.
func (s *ChallengeStore) ListChallenges(ctx context.Context, q DBTX, division league.Division, statuses ...league.ChallengeStatus) ([]league.Challenge, error) {
	query, args, err := sqlx.In("SELECT * FROM challenges WHERE division = ? AND status IN (?) ORDER BY created_at ASC, code ASC", division, statuses)
	if err != nil {
		return nil, err
	}

	var challenges []league.Challenge
	err = q.SelectContext(ctx, &challenges, q.Rebind(query), args...)
	return challenges, err
}

func (s *ChallengeStore) CreateLadderMatch(ctx context.Context, tx *sqlx.Tx, match *league.LadderMatch) error {
	_, err := tx.NamedExecContext(ctx, createLadderMatchQuery, match)
	return err
}

func (s *ChallengeStore) GetLadderMatch(ctx context.Context, q DBTX, challengeID uuid.UUID) (*league.LadderMatch, error) {
	var match league.LadderMatch
	if err := q.GetContext(ctx, &match, "SELECT * FROM ladder_matches WHERE challenge_id = ?", challengeID); err != nil {
		return nil, notFound(err, "ladder match for challenge %s", challengeID)
	}
	return &match, nil
}

func (s *ChallengeStore) UpdateLadderMatch(ctx context.Context, tx *sqlx.Tx, match *league.LadderMatch) error {
	res, err := tx.NamedExecContext(ctx, updateLadderMatchQuery, match)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "ladder match "+match.ChallengeID.String())
}
