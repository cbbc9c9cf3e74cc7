package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownOwner is returned when the owner id does not reference a user.
var ErrUnknownOwner = errors.New("tasks: unknown owner")

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateTask inserts task and returns it with the storage assigned id.
func (r *PGRepository) CreateTask(ctx context.Context, task Task) (Task, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, content, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		task.Title, task.Content, task.OwnerID,
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Task{}, ErrUnknownOwner
		}
		return Task{}, fmt.Errorf("tasks: insert: %w", err)
	}
	return task, nil
}

// ListTasksByOwner returns the owner's tasks, oldest first.
func (r *PGRepository) ListTasksByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, owner_id, created_at
		FROM tasks
		WHERE owner_id = $1
		ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()

	list := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.OwnerID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("tasks: scan: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
