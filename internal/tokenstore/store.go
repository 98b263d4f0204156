// Package tokenstore holds the session and password-reset token stores.
// Both are plain key-value stores; all lifecycle rules (expiry, single use)
// are enforced by the services on top, except the single-use claim, which
// MarkUsed performs atomically so two concurrent resets cannot both succeed.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/models"
)

// ErrNotFound is returned when a token is absent from the store.
var ErrNotFound = errors.New("token not found")

// SessionStore persists session tokens.
type SessionStore interface {
	Put(ctx context.Context, session models.Session) error
	Get(ctx context.Context, token string) (models.Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions whose expiry has passed and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenStore persists password-reset tokens.
type ResetTokenStore interface {
	Put(ctx context.Context, token models.PasswordResetToken) error
	Get(ctx context.Context, token string) (models.PasswordResetToken, error)
	// MarkUsed flips used from false to true. It returns false when the
	// token was already used (or absent), so the caller can treat a lost
	// race as TOKEN_ALREADY_USED.
	MarkUsed(ctx context.Context, token string) (bool, error)
	// DeleteExpiredBefore removes tokens that expired before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
