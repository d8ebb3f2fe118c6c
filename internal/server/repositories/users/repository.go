// Package users declares the credential store: persisted user accounts with
// their password hash and login state.
package users

import (
	"context"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

// Repository reads and mutates user records. Lookups return
// common.ErrorNotFound when the user does not exist.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// GetUserByLoginForUpdate is GetUserByLogin that also locks the row until
	// the enclosing transaction ends. It must be called on a transaction.
	GetUserByLoginForUpdate(ctx context.Context, login string) (*models.User, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateLoginState persists FailedLoginAttempts, IsLocked and LastLogin.
	UpdateLoginState(ctx context.Context, user *models.User) error

	SetPassword(ctx context.Context, id string, passwordHash string) error

	// Unlock clears the lock flag and the attempt counter of login.
	Unlock(ctx context.Context, login string) error

	ListAll(ctx context.Context) ([]*models.User, error)
}
