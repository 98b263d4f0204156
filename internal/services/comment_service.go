package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/models"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	AddComment(ctx context.Context, actor models.User, questionID, content string) (models.Comment, error)
	ListComments(ctx context.Context, actor models.User, questionID string) ([]models.Comment, error)
	AcceptAnswer(ctx context.Context, actor models.User, commentID string) (models.Comment, error)
	DeleteComment(ctx context.Context, actor models.User, commentID string) error
}

// CommentService provides business logic for comments and answers.
type CommentService struct {
	db        *sql.DB
	questions QuestionServiceProvider
	users     UserServiceProvider
	mailer    mail.Mailer
	hub       *ws.Hub
	events    EventServiceProvider
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *sql.DB, questions QuestionServiceProvider, users UserServiceProvider, mailer mail.Mailer, hub *ws.Hub, events EventServiceProvider) *CommentService {
	return &CommentService{db: db, questions: questions, users: users, mailer: mailer, hub: hub, events: events}
}

// AddComment posts a comment on a question the actor can see. The question
// author gets a best-effort notification email when someone else comments.
func (s *CommentService) AddComment(ctx context.Context, actor models.User, questionID, content string) (models.Comment, error) {
	if content == "" {
		return models.Comment{}, apperr.Validation("Comment content is required")
	}

	q, err := s.questions.GetQuestion(ctx, actor, questionID)
	if err != nil {
		return models.Comment{}, err
	}

	c := models.Comment{
		ID:         uuid.New().String(),
		QuestionID: q.ID,
		AuthorID:   actor.ID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO comments (id, question_id, author_id, content, is_answer, created_at) VALUES (?, ?, ?, ?, 0, ?)",
		c.ID, c.QuestionID, c.AuthorID, c.Content, c.CreatedAt)
	if err != nil {
		return models.Comment{}, err
	}

	s.events.Record(ctx, "comment.create", "info", "Comment added on: "+q.Title, &actor.ID, &q.GroupID)
	s.hub.BroadcastToGroup(q.GroupID, ws.Message{Action: "comment.created", Payload: c}.Encode())

	if q.AuthorID != actor.ID {
		s.notifyAuthor(ctx, q, actor)
	}

	return c, nil
}

// ListComments returns a question's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, actor models.User, questionID string) ([]models.Comment, error) {
	if _, err := s.questions.GetQuestion(ctx, actor, questionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, question_id, author_id, content, is_answer, created_at FROM comments WHERE question_id = ? ORDER BY created_at", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.AuthorID, &c.Content, &c.IsAnswer, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// AcceptAnswer promotes a comment to the accepted answer and marks its
// question answered. Only the question author or an admin may accept.
func (s *CommentService) AcceptAnswer(ctx context.Context, actor models.User, commentID string) (models.Comment, error) {
	c, err := s.load(ctx, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	q, err := s.questions.GetQuestion(ctx, actor, c.QuestionID)
	if err != nil {
		return models.Comment{}, err
	}
	if q.AuthorID != actor.ID && !actor.IsAdmin {
		return models.Comment{}, apperr.Forbidden("Access denied")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Comment{}, err
	}
	defer tx.Rollback()

	// Only one accepted answer per question.
	if _, err := tx.ExecContext(ctx, "UPDATE comments SET is_answer = 0 WHERE question_id = ?", q.ID); err != nil {
		return models.Comment{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE comments SET is_answer = 1 WHERE id = ?", c.ID); err != nil {
		return models.Comment{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE questions SET status = ?, updated_at = ? WHERE id = ?",
		models.QuestionStatusAnswered, time.Now(), q.ID); err != nil {
		return models.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Comment{}, err
	}

	c.IsAnswer = true
	s.events.Record(ctx, "comment.accept", "info", "Answer accepted on: "+q.Title, &actor.ID, &q.GroupID)
	s.hub.BroadcastToGroup(q.GroupID, ws.Message{Action: "question.answered", Payload: q.ID}.Encode())

	return c, nil
}

// DeleteComment removes a comment. Only its author or an admin may delete.
func (s *CommentService) DeleteComment(ctx context.Context, actor models.User, commentID string) error {
	c, err := s.load(ctx, commentID)
	if err != nil {
		return err
	}
	if _, err := s.questions.GetQuestion(ctx, actor, c.QuestionID); err != nil {
		return err
	}
	if c.AuthorID != actor.ID && !actor.IsAdmin {
		return apperr.Forbidden("Access denied")
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", commentID)
	return err
}

func (s *CommentService) load(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	row := s.db.QueryRowContext(ctx,
		"SELECT id, question_id, author_id, content, is_answer, created_at FROM comments WHERE id = ?", id)
	err := row.Scan(&c.ID, &c.QuestionID, &c.AuthorID, &c.Content, &c.IsAnswer, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Comment{}, apperr.NotFound("Comment not found")
	}
	if err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

func (s *CommentService) notifyAuthor(ctx context.Context, q models.Question, commenter models.User) {
	author, err := s.users.GetUserByID(ctx, q.AuthorID)
	if err != nil {
		return
	}
	mail.SendBestEffort(ctx, s.mailer, mail.Message{
		To:      author.Email,
		Subject: "New reply on: " + q.Title,
		Text:    commenter.Username + " replied to your question \"" + q.Title + "\".",
		HTML:    "<p><strong>" + commenter.Username + "</strong> replied to your question &quot;" + q.Title + "&quot;.</p>",
	})
}
