package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/storage"
	"github.com/groupdesk/groupdesk-be/internal/tagging"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// taggingTimeout bounds the best-effort tag suggestion call.
const taggingTimeout = 10 * time.Second

// QuestionServiceProvider defines the interface for question services.
type QuestionServiceProvider interface {
	CreateQuestion(ctx context.Context, actor models.User, title, content string) (models.Question, error)
	GetQuestion(ctx context.Context, actor models.User, id string) (models.Question, error)
	ListQuestions(ctx context.Context, actor models.User, groupFilter string) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, actor models.User, id, title, content string) (models.Question, error)
	CloseQuestion(ctx context.Context, actor models.User, id string) (models.Question, error)
	DeleteQuestion(ctx context.Context, actor models.User, id string) error
}

// QuestionService provides business logic for the group-scoped question
// queue.
type QuestionService struct {
	db     *sql.DB
	tagger tagging.Tagger
	blobs  storage.BlobStore
	hub    *ws.Hub
	events EventServiceProvider
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(db *sql.DB, tagger tagging.Tagger, blobs storage.BlobStore, hub *ws.Hub, events EventServiceProvider) *QuestionService {
	return &QuestionService{db: db, tagger: tagger, blobs: blobs, hub: hub, events: events}
}

// CreateQuestion posts a question into the author's group queue. Tag
// suggestion is best-effort: a failing tagger leaves the question untagged
// and never fails the create.
func (s *QuestionService) CreateQuestion(ctx context.Context, actor models.User, title, content string) (models.Question, error) {
	if title == "" || content == "" {
		return models.Question{}, apperr.Validation("Title and content are required")
	}

	tags := s.suggestTags(ctx, title, content)

	now := time.Now()
	q := models.Question{
		ID:        uuid.New().String(),
		GroupID:   actor.GroupID,
		AuthorID:  actor.ID,
		Title:     title,
		Content:   content,
		Status:    models.QuestionStatusOpen,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tagsJSON, err := json.Marshal(q.Tags)
	if err != nil {
		return models.Question{}, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO questions (id, group_id, author_id, title, content, status, tags_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		q.ID, q.GroupID, q.AuthorID, q.Title, q.Content, q.Status, string(tagsJSON), q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return models.Question{}, err
	}

	s.events.Record(ctx, "question.create", "info", "Question posted: "+q.Title, &actor.ID, &q.GroupID)
	s.hub.BroadcastToGroup(q.GroupID, ws.Message{Action: "question.created", Payload: q}.Encode())

	return q, nil
}

// GetQuestion loads a question, enforcing group scoping.
func (s *QuestionService) GetQuestion(ctx context.Context, actor models.User, id string) (models.Question, error) {
	q, err := s.load(ctx, id)
	if err != nil {
		return models.Question{}, err
	}
	if !auth.CanAccessGroup(actor, q.GroupID) {
		return models.Question{}, apperr.Forbidden("Access denied")
	}
	return q, nil
}

// ListQuestions returns the actor's visible queue: their own group for
// regular users, everything (or a chosen group) for admins.
func (s *QuestionService) ListQuestions(ctx context.Context, actor models.User, groupFilter string) ([]models.Question, error) {
	query := "SELECT id, group_id, author_id, title, content, status, tags_json, created_at, updated_at FROM questions"
	var args []interface{}

	switch {
	case !actor.IsAdmin:
		query += " WHERE group_id = ?"
		args = append(args, actor.GroupID)
	case groupFilter != "":
		query += " WHERE group_id = ?"
		args = append(args, groupFilter)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpdateQuestion edits title and content. Only the author or an admin may
// edit.
func (s *QuestionService) UpdateQuestion(ctx context.Context, actor models.User, id, title, content string) (models.Question, error) {
	if title == "" || content == "" {
		return models.Question{}, apperr.Validation("Title and content are required")
	}

	q, err := s.GetQuestion(ctx, actor, id)
	if err != nil {
		return models.Question{}, err
	}
	if q.AuthorID != actor.ID && !actor.IsAdmin {
		return models.Question{}, apperr.Forbidden("Access denied")
	}

	q.Title = title
	q.Content = content
	q.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE questions SET title = ?, content = ?, updated_at = ? WHERE id = ?",
		q.Title, q.Content, q.UpdatedAt, q.ID)
	if err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// CloseQuestion moves a question to closed. Only the author or an admin may
// close.
func (s *QuestionService) CloseQuestion(ctx context.Context, actor models.User, id string) (models.Question, error) {
	q, err := s.GetQuestion(ctx, actor, id)
	if err != nil {
		return models.Question{}, err
	}
	if q.AuthorID != actor.ID && !actor.IsAdmin {
		return models.Question{}, apperr.Forbidden("Access denied")
	}
	if q.Status == models.QuestionStatusClosed {
		return q, nil
	}

	q.Status = models.QuestionStatusClosed
	q.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE questions SET status = ?, updated_at = ? WHERE id = ?", q.Status, q.UpdatedAt, q.ID)
	if err != nil {
		return models.Question{}, err
	}

	s.events.Record(ctx, "question.close", "info", "Question closed: "+q.Title, &actor.ID, &q.GroupID)
	return q, nil
}

// DeleteQuestion removes a question along with its comments and attachment
// rows. Blob deletion is best-effort; an unreachable bucket leaves orphaned
// objects, not a failed delete.
func (s *QuestionService) DeleteQuestion(ctx context.Context, actor models.User, id string) error {
	q, err := s.GetQuestion(ctx, actor, id)
	if err != nil {
		return err
	}
	if q.AuthorID != actor.ID && !actor.IsAdmin {
		return apperr.Forbidden("Access denied")
	}

	keys, err := s.attachmentKeys(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM comments WHERE question_id = ?",
		"DELETE FROM attachments WHERE question_id = ?",
		"DELETE FROM questions WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete attachment blob")
		}
	}

	s.events.Record(ctx, "question.delete", "info", "Question deleted: "+q.Title, &actor.ID, &q.GroupID)
	return nil
}

func (s *QuestionService) load(ctx context.Context, id string) (models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, author_id, title, content, status, tags_json, created_at, updated_at FROM questions WHERE id = ?", id)
	q, err := scanQuestionRow(row)
	if err == sql.ErrNoRows {
		return models.Question{}, apperr.NotFound("Question not found")
	}
	if err != nil {
		return models.Question{}, err
	}
	return q, nil
}

func (s *QuestionService) attachmentKeys(ctx context.Context, questionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT storage_key FROM attachments WHERE question_id = ?", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *QuestionService) suggestTags(ctx context.Context, title, content string) []string {
	tagCtx, cancel := context.WithTimeout(ctx, taggingTimeout)
	defer cancel()

	tags, err := s.tagger.GenerateTags(tagCtx, title, content)
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Tag suggestion failed, continuing without tags")
		return []string{}
	}
	return tags
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var q models.Question
	var tagsJSON string
	err := row.Scan(&q.ID, &q.GroupID, &q.AuthorID, &q.Title, &q.Content, &q.Status,
		&tagsJSON, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return models.Question{}, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &q.Tags); err != nil {
		q.Tags = []string{}
	}
	return q, nil
}

func scanQuestionRow(row *sql.Row) (models.Question, error) {
	return scanQuestion(row)
}
