// Package sessions stores server-side login sessions keyed by the SHA-256 of
// their opaque token.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

// Repository defines operations for issuing, resolving, and revoking sessions.
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *models.Session) error

	// Find returns the session with the given id or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Touch records activity on the session at lastSeen.
	Touch(ctx context.Context, id string, lastSeen time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes every session of userID.
	DeleteByUser(ctx context.Context, userID string) error
}
