// Package session defines session persistence and its Redis backend.
package session

import (
	"context"
	"time"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

// Store persists server-side sessions keyed by their opaque token.
type Store interface {
	Create(ctx context.Context, s *model.Session) error
	// Get returns model.ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (*model.Session, error)
	// Touch moves the expiry of a live session.
	Touch(ctx context.Context, token string, expiresAt, updatedAt time.Time) error
	Delete(ctx context.Context, token string) error
}
