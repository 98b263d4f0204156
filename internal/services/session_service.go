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

// SessionTTL is how long a session token stays valid after login.
const SessionTTL = 6 * time.Hour

// The same message covers unknown usernames and wrong passwords so the
// endpoint cannot be used to enumerate accounts.
const invalidCredentialsMsg = "Invalid username or password"

// SessionServiceProvider defines the interface for session management.
type SessionServiceProvider interface {
	Login(ctx context.Context, username, password string) (models.User, models.Session, error)
	Validate(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
}

// SessionService issues, validates, and revokes opaque session tokens.
type SessionService struct {
	sessions tokenstore.SessionStore
	users    UserServiceProvider
	events   EventServiceProvider
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions tokenstore.SessionStore, users UserServiceProvider, events EventServiceProvider) *SessionService {
	return &SessionService{sessions: sessions, users: users, events: events}
}

// Login verifies the credentials and issues a new session token. Unknown
// username and wrong password fail identically.
func (s *SessionService) Login(ctx context.Context, username, password string) (models.User, models.Session, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Code == apperr.CodeUserNotFound {
			return models.User{}, models.Session{}, apperr.New(apperr.CodeInvalidCreds, invalidCredentialsMsg)
		}
		return models.User{}, models.Session{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, models.Session{}, apperr.New(apperr.CodeInvalidCreds, invalidCredentialsMsg)
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		return models.User{}, models.Session{}, err
	}

	now := time.Now()
	session := models.Session{
		Token:     token,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return models.User{}, models.Session{}, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update last login timestamp")
	}
	s.events.Record(ctx, "auth.login", "info", "User "+user.Username+" logged in", &user.ID, &user.GroupID)

	user.PasswordHash = ""
	return user, session, nil
}

// Validate resolves a token to its user. Missing, unknown, and expired
// tokens all fail with UNAUTHORIZED; validation never renews the session.
func (s *SessionService) Validate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, apperr.Unauthorized("Authentication required")
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return models.User{}, apperr.Unauthorized("Invalid session")
		}
		return models.User{}, err
	}
	if session.Expired(time.Now()) {
		return models.User{}, apperr.Unauthorized("Invalid session")
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		// A session pointing at a deleted user is just an invalid session.
		return models.User{}, apperr.Unauthorized("Invalid session")
	}

	user.PasswordHash = ""
	return user, nil
}

// Logout revokes the token. Revoking an already-invalid token fails cleanly
// with UNAUTHORIZED.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return apperr.Unauthorized("Invalid session")
		}
		return err
	}
	return nil
}
