package models

import "time"

// Group is a tenant-like partition. Questions and their comments are scoped
// to the group of the user who asked.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
