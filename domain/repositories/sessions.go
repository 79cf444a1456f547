package repositories

import (
	"context"

	"github.com/castpress/castpress/domain/entities"
)

// SessionRepository defines access to the session store. All pipeline
// artifacts hang off a session; there is no persistence beyond the store's
// own lifetime.
type SessionRepository interface {
	Create(ctx context.Context) (*entities.Session, error)
	Get(ctx context.Context, id string) (*entities.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions past their expiry and returns how many
	// were dropped.
	DeleteExpired(ctx context.Context) (int, error)
}
