package views

import (
	"context"

	"github.com/AdamBeresnev/padel-league/internal/middleware"
	users "github.com/AdamBeresnev/padel-league/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

func IsAdmin(ctx context.Context) bool {
	u := GetUser(ctx)
	return u != nil && u.IsAdmin
}
