package storage

import (
	"context"
	"time"

	"github.com/medkeep/medkeep/internal/models"
)

// SessionStorage defines interface for server-side session persistence.
// Sessions are keyed by their opaque token value.
type SessionStorage interface {
	// SaveSession stores a new session
	// If a session with the same token exists, it will be replaced
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves session by token value
	// Returns ErrSessionNotFound if session doesn't exist
	GetSession(ctx context.Context, token string) (*models.Session, error)

	// DeleteSession deletes session by token value
	// Returns ErrSessionNotFound if session doesn't exist
	DeleteSession(ctx context.Context, token string) error

	// DeleteUserSessions deletes all sessions for a user
	// Returns number of deleted sessions
	DeleteUserSessions(ctx context.Context, userID string) (int, error)

	// DeleteExpiredSessions removes all sessions expired before now
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
