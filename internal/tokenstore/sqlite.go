package tokenstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/models"
)

// SQLiteSessionStore keeps sessions in the application database.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore creates a session store over db.
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

func (s *SQLiteSessionStore) Put(ctx context.Context, session models.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, issued_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, session.IssuedAt, session.ExpiresAt)
	return err
}

func (s *SQLiteSessionStore) Get(ctx context.Context, token string) (models.Session, error) {
	var session models.Session
	row := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, issued_at, expires_at FROM sessions WHERE token = ?", token)
	err := row.Scan(&session.Token, &session.UserID, &session.IssuedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SQLiteResetTokenStore keeps password-reset tokens in the application
// database. Reset tokens always live here, even when sessions are in Redis:
// the consume step relies on the conditional UPDATE below.
type SQLiteResetTokenStore struct {
	db *sql.DB
}

// NewSQLiteResetTokenStore creates a reset-token store over db.
func NewSQLiteResetTokenStore(db *sql.DB) *SQLiteResetTokenStore {
	return &SQLiteResetTokenStore{db: db}
}

func (s *SQLiteResetTokenStore) Put(ctx context.Context, token models.PasswordResetToken) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (token, user_id, issued_at, expires_at, used) VALUES (?, ?, ?, ?, ?)",
		token.Token, token.UserID, token.IssuedAt, token.ExpiresAt, token.Used)
	return err
}

func (s *SQLiteResetTokenStore) Get(ctx context.Context, token string) (models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	row := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, issued_at, expires_at, used FROM password_reset_tokens WHERE token = ?", token)
	err := row.Scan(&t.Token, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.Used)
	if err == sql.ErrNoRows {
		return models.PasswordResetToken{}, ErrNotFound
	}
	if err != nil {
		return models.PasswordResetToken{}, err
	}
	return t, nil
}

// MarkUsed claims the token with a conditional update. Zero rows affected
// means another request got there first.
func (s *SQLiteResetTokenStore) MarkUsed(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used = 1 WHERE token = ? AND used = 0", token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteResetTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
