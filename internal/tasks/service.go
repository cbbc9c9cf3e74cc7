package tasks

import (
	"context"
	"errors"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

// Service implements task use cases.
type Service struct {
	repo Repository
}

// NewService constructs the task service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateTask persists a task owned by ownerID. Title and content may be empty.
func (s *Service) CreateTask(ctx context.Context, ownerID string, req CreateTaskRequest) (Task, error) {
	if ownerID == "" {
		return Task{}, shared.NewFailure(shared.ErrUnauthenticated, shared.Detail{
			Title:       "Unauthenticated",
			Description: "Could not validate credentials",
		})
	}
	task, err := s.repo.CreateTask(ctx, Task{Title: req.Title, Content: req.Content, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, ErrUnknownOwner) {
			return Task{}, shared.NewFailure(shared.ErrNotFound, shared.Detail{
				Title:       "InvalidUserID",
				Description: "No user with this id was found",
			})
		}
		return Task{}, err
	}
	return task, nil
}

// ListTasks returns the tasks owned by ownerID.
func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]Task, error) {
	return s.repo.ListTasksByOwner(ctx, ownerID)
}
