package store

import (
	"context"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TeamStore struct {
	db *sqlx.DB
}

func NewTeamStore(db *sqlx.DB) *TeamStore {
	return &TeamStore{db: db}
}

const (
	createTeamQuery = `
		INSERT INTO teams (id, name, division, active, matches_played, wins, losses, draws, points,
			sets_for, sets_against, games_for, games_against, created_at)
		VALUES (:id, :name, :division, :active, :matches_played, :wins, :losses, :draws, :points,
			:sets_for, :sets_against, :games_for, :games_against, :created_at)
	`
	updateTeamStatsQuery = `
		UPDATE teams SET
			matches_played = :matches_played,
			wins = :wins,
			losses = :losses,
			draws = :draws,
			points = :points,
			sets_for = :sets_for,
			sets_against = :sets_against,
			games_for = :games_for,
			games_against = :games_against
		WHERE id = :id
	`
)

func (s *TeamStore) CreateTeam(ctx context.Context, tx *sqlx.Tx, team *league.Entrant) error {
	_, err := tx.NamedExecContext(ctx, createTeamQuery, team)
	return err
}

func (s *TeamStore) GetTeam(ctx context.Context, q DBTX, id uuid.UUID) (*league.Entrant, error) {
	var team league.Entrant
	if err := q.GetContext(ctx, &team, "SELECT * FROM teams WHERE id = ?", id); err != nil {
		return nil, notFound(err, "team %s", id)
	}
	return &team, nil
}

// ListTeams returns every team in storage order. Callers rank them with standings.Compute.
func (s *TeamStore) ListTeams(ctx context.Context, q DBTX) ([]league.Entrant, error) {
	var teams []league.Entrant
	err := q.SelectContext(ctx, &teams, "SELECT * FROM teams")
	return teams, err
}

func (s *TeamStore) UpdateStats(ctx context.Context, tx *sqlx.Tx, team *league.Entrant) error {
	res, err := tx.NamedExecContext(ctx, updateTeamStatsQuery, team)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "team "+team.ID.String())
}

func (s *TeamStore) SetActive(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, active bool) error {
	res, err := tx.ExecContext(ctx, "UPDATE teams SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "team "+id.String())
}
