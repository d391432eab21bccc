package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/store"
	users "github.com/AdamBeresnev/padel-league/internal/user"
	"github.com/AdamBeresnev/padel-league/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

type UserService struct {
	Deps
	store       *store.UserStore
	adminEmails []string
}

// NewUserService grants admin rights on sign-in to the listed emails.
func NewUserService(deps Deps, store *store.UserStore, adminEmails []string) *UserService {
	normalized := make([]string, 0, len(adminEmails))
	for _, e := range adminEmails {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(e)))
	}
	return &UserService{Deps: deps, store: store, adminEmails: normalized}
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	admin := slices.Contains(s.adminEmails, strings.ToLower(gothUser.Email))

	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != displayName(gothUser) {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = displayName(gothUser)
			if err := s.store.UpdateUserProfile(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to update user profile: %w", err)
			}
		}
		if admin && !user.IsAdmin {
			if err := s.store.SetAdmin(ctx, user.ID, true); err != nil {
				return nil, fmt.Errorf("failed to grant admin: %w", err)
			}
			user.IsAdmin = true
		}
		return user, nil
	}

	if !errors.Is(err, league.ErrNotFound) {
		return nil, err
	}

	newUser := &users.User{
		ID:         uuid.New(),
		Email:      gothUser.Email,
		Username:   displayName(gothUser),
		CreatedAt:  s.Clock.Now(),
		Provider:   &gothUser.Provider,
		ProviderID: &gothUser.UserID,
		AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		IsAdmin:    admin,
	}
	if err := s.store.CreateUser(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.Logger.Info().Str("user", newUser.Username).Bool("admin", admin).Msg("user signed up")
	return newUser, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}

func displayName(u goth.User) string {
	if u.NickName != "" {
		return u.NickName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
