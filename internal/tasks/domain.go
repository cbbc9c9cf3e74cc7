// Package tasks stores the per-user task list.
package tasks

import (
	"context"
	"time"
)

// Task is a note owned by exactly one user. The owner never changes.
type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskRequest carries the caller supplied task fields.
type CreateTaskRequest struct {
	Title   string `json:"title" validate:"max=255"`
	Content string `json:"content"`
}

// Repository persists tasks.
type Repository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	ListTasksByOwner(ctx context.Context, ownerID string) ([]Task, error)
}
