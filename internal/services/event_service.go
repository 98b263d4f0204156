package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/rs/zerolog/log"
)

// EventServiceProvider defines the interface for audit event services.
type EventServiceProvider interface {
	Record(ctx context.Context, eventType, level, message string, actorID, groupID *string)
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides the audit event log.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// Record writes an audit event. Recording is fire-and-forget: failures are
// logged and never propagate to the triggering operation.
func (s *EventService) Record(ctx context.Context, eventType, level, message string, actorID, groupID *string) {
	event := models.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Level:   level,
		Message: message,
		ActorID: actorID,
		GroupID: groupID,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, actor_id, group_id) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.ActorID, event.GroupID)
	if err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record audit event")
	}
}

// GetRecentEvents retrieves the most recent events.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, actor_id, group_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message,
			&event.ActorID, &event.GroupID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
