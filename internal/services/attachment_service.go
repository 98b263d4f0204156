package services

import (
	"context"
	"database/sql"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// MaxAttachmentSize caps a single upload.
const MaxAttachmentSize = 10 << 20 // 10 MiB

// AttachmentServiceProvider defines the interface for attachment services.
type AttachmentServiceProvider interface {
	Upload(ctx context.Context, actor models.User, questionID, filename, contentType string, size int64, body io.Reader) (models.Attachment, error)
	ListForQuestion(ctx context.Context, actor models.User, questionID string) ([]models.Attachment, error)
	DownloadURL(ctx context.Context, actor models.User, attachmentID string) (string, error)
	Delete(ctx context.Context, actor models.User, attachmentID string) error
}

// AttachmentService stores file metadata in the database and bytes in blob
// storage.
type AttachmentService struct {
	db        *sql.DB
	blobs     storage.BlobStore
	questions QuestionServiceProvider
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(db *sql.DB, blobs storage.BlobStore, questions QuestionServiceProvider) *AttachmentService {
	return &AttachmentService{db: db, blobs: blobs, questions: questions}
}

// Upload stores a file against a question the actor can see.
func (s *AttachmentService) Upload(ctx context.Context, actor models.User, questionID, filename, contentType string, size int64, body io.Reader) (models.Attachment, error) {
	if filename == "" {
		return models.Attachment{}, apperr.Validation("Filename is required")
	}
	if size <= 0 || size > MaxAttachmentSize {
		return models.Attachment{}, apperr.Validation("File size must be between 1 byte and 10 MiB")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q, err := s.questions.GetQuestion(ctx, actor, questionID)
	if err != nil {
		return models.Attachment{}, err
	}

	// path.Base strips any directory components a client sneaks into the
	// filename.
	filename = path.Base(filename)

	a := models.Attachment{
		ID:          uuid.New().String(),
		QuestionID:  q.ID,
		UploadedBy:  actor.ID,
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	a.StorageKey = "attachments/" + q.ID + "/" + a.ID + "/" + filename

	if err := s.blobs.Upload(ctx, a.StorageKey, contentType, body, size); err != nil {
		return models.Attachment{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO attachments (id, question_id, uploaded_by, filename, storage_key, size, content_type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.QuestionID, a.UploadedBy, a.Filename, a.StorageKey, a.Size, a.ContentType, a.CreatedAt)
	if err != nil {
		// The blob made it up but the row did not; remove the orphan.
		if delErr := s.blobs.Delete(ctx, a.StorageKey); delErr != nil {
			log.Warn().Err(delErr).Str("key", a.StorageKey).Msg("Failed to clean up orphaned blob")
		}
		return models.Attachment{}, err
	}

	return a, nil
}

// ListForQuestion returns a question's attachments.
func (s *AttachmentService) ListForQuestion(ctx context.Context, actor models.User, questionID string) ([]models.Attachment, error) {
	if _, err := s.questions.GetQuestion(ctx, actor, questionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, question_id, uploaded_by, filename, storage_key, size, content_type, created_at FROM attachments WHERE question_id = ? ORDER BY created_at", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.UploadedBy, &a.Filename, &a.StorageKey,
			&a.Size, &a.ContentType, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// DownloadURL returns a time-limited presigned URL for the attachment.
func (s *AttachmentService) DownloadURL(ctx context.Context, actor models.User, attachmentID string) (string, error) {
	a, err := s.loadAuthorized(ctx, actor, attachmentID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignDownload(ctx, a.StorageKey, a.Filename)
}

// Delete removes an attachment. Only the uploader or an admin may delete.
// The blob delete is best-effort once the row is gone.
func (s *AttachmentService) Delete(ctx context.Context, actor models.User, attachmentID string) error {
	a, err := s.loadAuthorized(ctx, actor, attachmentID)
	if err != nil {
		return err
	}
	if a.UploadedBy != actor.ID && !actor.IsAdmin {
		return apperr.Forbidden("Access denied")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", a.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, a.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", a.StorageKey).Msg("Failed to delete attachment blob")
	}
	return nil
}

func (s *AttachmentService) loadAuthorized(ctx context.Context, actor models.User, id string) (models.Attachment, error) {
	var a models.Attachment
	row := s.db.QueryRowContext(ctx,
		"SELECT id, question_id, uploaded_by, filename, storage_key, size, content_type, created_at FROM attachments WHERE id = ?", id)
	err := row.Scan(&a.ID, &a.QuestionID, &a.UploadedBy, &a.Filename, &a.StorageKey,
		&a.Size, &a.ContentType, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Attachment{}, apperr.NotFound("Attachment not found")
	}
	if err != nil {
		return models.Attachment{}, err
	}

	// Group scoping rides on the owning question.
	if _, err := s.questions.GetQuestion(ctx, actor, a.QuestionID); err != nil {
		return models.Attachment{}, err
	}
	return a, nil
}
