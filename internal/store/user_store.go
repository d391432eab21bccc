package store

import (
	"context"

	users "github.com/AdamBeresnev/padel-league/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery           = "SELECT * FROM users WHERE id = ?"
	getUserByProviderQuery = `
		SELECT * FROM users
		WHERE provider = ?
		AND provider_id = ?
	`
	createUserQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url, is_admin, created_at) VALUES
		(:id, :email, :username, :provider, :provider_id, :avatar_url, :is_admin, :created_at)
	`
	updateUserProfileQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url
		WHERE id = :id
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, getUserByProviderQuery, provider, providerID); err != nil {
		return nil, notFound(err, "user %s/%s", provider, providerID)
	}
	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, getUserQuery, id); err != nil {
		return nil, notFound(err, "user %s", id)
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

func (s *UserStore) UpdateUserProfile(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, updateUserProfileQuery, user)
	return err
}

func (s *UserStore) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE id = ?", admin, id)
	if err != nil {
		return err
	}
	return expectRows(res, 1, "user "+id.String())
}
