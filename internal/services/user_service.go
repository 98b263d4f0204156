package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/rs/zerolog/log"
	"time"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, username, email, password, groupID string, isAdmin bool) (models.User, error)
	UpdateUser(ctx context.Context, id, username, email, groupID string, isAdmin bool) (models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, username, email, password_hash, group_id, is_admin, created_at, last_login_at"

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.GroupID, &user.IsAdmin, &user.CreatedAt, &user.LastLoginAt)
	if err == sql.ErrNoRows {
		return models.User{}, apperr.New(apperr.CodeUserNotFound, "User not found")
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername retrieves a single user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// GetUserByEmail retrieves a single user by email. The lookup is exact and
// case-sensitive.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetAllUsers lists every user.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.GroupID, &user.IsAdmin, &user.CreatedAt, &user.LastLoginAt); err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, username, email, password, groupID string, isAdmin bool) (models.User, error) {
	if username == "" || email == "" {
		return models.User{}, apperr.Validation("Username and email are required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		GroupID:      groupID,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, group_id, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.GroupID, user.IsAdmin, user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateUser updates a user's profile, group assignment, and admin flag.
func (s *UserService) UpdateUser(ctx context.Context, id, username, email, groupID string, isAdmin bool) (models.User, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, email = ?, group_id = ?, is_admin = ? WHERE id = ?",
		username, email, groupID, isAdmin, id)
	if err != nil {
		return models.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.User{}, apperr.New(apperr.CodeUserNotFound, "User not found")
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdatePasswordHash sets a new password hash for a user. Policy checks and
// hashing happen in the caller.
func (s *UserService) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.CodeUserNotFound, "User not found")
	}
	return nil
}

// TouchLastLogin stamps the user's last_login_at.
func (s *UserService) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", time.Now(), id)
	return err
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.CodeUserNotFound, "User not found")
	}
	return nil
}

// SeedAdmin creates the default group and an admin user on first run. It is
// a no-op when any user already exists or no password was configured.
func (s *UserService) SeedAdmin(ctx context.Context, username, email, password string) error {
	if password == "" {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	groupID := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, description) VALUES (?, ?, ?)",
		groupID, "General", "Default group"); err != nil {
		return err
	}

	if _, err := s.CreateUser(ctx, username, email, password, groupID, true); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("Seeded initial admin user")
	return nil
}
