package models

import "time"

// Question statuses.
const (
	QuestionStatusOpen     = "open"
	QuestionStatusAnswered = "answered"
	QuestionStatusClosed   = "closed"
)

// Question is a post in a group's support queue.
type Question struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
