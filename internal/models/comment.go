package models

import "time"

// Comment is a reply on a question. A comment with IsAnswer set is the
// accepted answer; accepting one marks the question answered.
type Comment struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	AuthorID   string    `json:"authorId"`
	Content    string    `json:"content"`
	IsAnswer   bool      `json:"isAnswer"`
	CreatedAt  time.Time `json:"createdAt"`
}
