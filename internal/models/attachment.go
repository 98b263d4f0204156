package models

import "time"

// Attachment is a file uploaded against a question. The bytes live in blob
// storage under StorageKey; the row only carries metadata.
type Attachment struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"questionId"`
	UploadedBy  string    `json:"uploadedBy"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"-"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}
