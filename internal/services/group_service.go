package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/models"
)

// GroupServiceProvider defines the interface for group services.
type GroupServiceProvider interface {
	GetGroupByID(ctx context.Context, id string) (models.Group, error)
	GetAllGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, name, description string) (models.Group, error)
	UpdateGroup(ctx context.Context, id, name, description string) (models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
}

// GroupService provides business logic for group management.
type GroupService struct {
	db *sql.DB
}

// NewGroupService creates a new GroupService.
func NewGroupService(db *sql.DB) *GroupService {
	return &GroupService{db: db}
}

// GetGroupByID retrieves a single group.
func (s *GroupService) GetGroupByID(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM groups WHERE id = ?", id)
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Group{}, apperr.NotFound("Group not found")
	}
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// GetAllGroups lists every group.
func (s *GroupService) GetAllGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM groups ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, name, description string) (models.Group, error) {
	if name == "" {
		return models.Group{}, apperr.Validation("Group name is required")
	}

	g := models.Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, created_at) VALUES (?, ?, ?, ?)",
		g.ID, g.Name, g.Description, g.CreatedAt)
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// UpdateGroup updates a group's name and description.
func (s *GroupService) UpdateGroup(ctx context.Context, id, name, description string) (models.Group, error) {
	if name == "" {
		return models.Group{}, apperr.Validation("Group name is required")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET name = ?, description = ? WHERE id = ?", name, description, id)
	if err != nil {
		return models.Group{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Group{}, apperr.NotFound("Group not found")
	}
	return s.GetGroupByID(ctx, id)
}

// DeleteGroup removes a group. Groups with members cannot be deleted.
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	var members int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE group_id = ?", id).Scan(&members); err != nil {
		return err
	}
	if members > 0 {
		return apperr.Validation("Group still has members")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("Group not found")
	}
	return nil
}
