package ports

import (
	"context"

	"github.com/springjools/ombibot/pkg/domain"
)

// SessionStore keeps live sessions.
type SessionStore interface {
	// Save stores the session under its user id.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session for a user id.
	// Returns domain.ErrSessionNotFound if the user has no session.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a user id.
	Delete(ctx context.Context, userID string) error

	// List returns the user ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
