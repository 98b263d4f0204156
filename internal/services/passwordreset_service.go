package services

import (
	"context"
	"errors"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// ResetTokenTTL is how long a password-reset token stays redeemable.
const ResetTokenTTL = 24 * time.Hour

// PasswordResetServiceProvider defines the interface for the reset lifecycle.
type PasswordResetServiceProvider interface {
	Request(ctx context.Context, email string) (models.User, models.PasswordResetToken, error)
	Validate(ctx context.Context, token string) (models.User, error)
	Reset(ctx context.Context, token, newPassword string) (models.User, error)
}

// PasswordResetService issues, validates, and consumes single-use
// password-reset tokens.
type PasswordResetService struct {
	tokens tokenstore.ResetTokenStore
	users  UserServiceProvider
	events EventServiceProvider
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(tokens tokenstore.ResetTokenStore, users UserServiceProvider, events EventServiceProvider) *PasswordResetService {
	return &PasswordResetService{tokens: tokens, users: users, events: events}
}

// Request issues a new reset token for the account with the given email.
// Earlier outstanding tokens for the same user stay valid. The route layer
// hides USER_NOT_FOUND from the outside world; here it is a real error.
func (s *PasswordResetService) Request(ctx context.Context, email string) (models.User, models.PasswordResetToken, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, models.PasswordResetToken{}, err
	}

	raw, err := auth.NewResetToken()
	if err != nil {
		return models.User{}, models.PasswordResetToken{}, err
	}

	now := time.Now()
	token := models.PasswordResetToken{
		Token:     raw,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ResetTokenTTL),
		Used:      false,
	}
	if err := s.tokens.Put(ctx, token); err != nil {
		return models.User{}, models.PasswordResetToken{}, err
	}

	s.events.Record(ctx, "auth.reset_requested", "info", "Password reset requested for "+user.Username, &user.ID, &user.GroupID)

	user.PasswordHash = ""
	return user, token, nil
}

// Validate checks a presented token without consuming it. The checks run in
// a fixed order: existence, then used flag, then expiry. Format checking
// happens at the boundary before any call here.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (models.User, error) {
	t, err := s.lookup(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	return s.owner(ctx, t)
}

// Reset consumes the token and rewrites the account's password. The token
// state is re-checked here; a prior Validate call proves nothing because
// requests are stateless. The used flag is claimed with a conditional
// update, so of two concurrent resets exactly one succeeds.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) (models.User, error) {
	t, err := s.lookup(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.owner(ctx, t)
	if err != nil {
		return models.User{}, err
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return models.User{}, err
	}

	claimed, err := s.tokens.MarkUsed(ctx, t.Token)
	if err != nil {
		return models.User{}, err
	}
	if !claimed {
		return models.User{}, apperr.New(apperr.CodeTokenAlreadyUsed, "Reset token has already been used")
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		// The token is already burned; surface the failure rather than
		// leave the caller believing the password changed.
		log.Error().Err(err).Str("user_id", user.ID).Msg("Password update failed after consuming reset token")
		return models.User{}, apperr.Internal()
	}

	s.events.Record(ctx, "auth.password_reset", "info", "Password reset completed for "+user.Username, &user.ID, &user.GroupID)

	user.PasswordHash = ""
	return user, nil
}

// lookup fetches the token and applies the existence -> used -> expiry
// checks.
func (s *PasswordResetService) lookup(ctx context.Context, token string) (models.PasswordResetToken, error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return models.PasswordResetToken{}, apperr.New(apperr.CodeTokenNotFound, "Reset token not found")
		}
		return models.PasswordResetToken{}, err
	}
	if t.Used {
		return models.PasswordResetToken{}, apperr.New(apperr.CodeTokenAlreadyUsed, "Reset token has already been used")
	}
	if t.Expired(time.Now()) {
		return models.PasswordResetToken{}, apperr.New(apperr.CodeTokenExpired, "Reset token has expired")
	}
	return t, nil
}

func (s *PasswordResetService) owner(ctx context.Context, t models.PasswordResetToken) (models.User, error) {
	user, err := s.users.GetUserByID(ctx, t.UserID)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}
