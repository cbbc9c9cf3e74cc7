package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/odyssey-erp/taskboard/internal/platform/db"
)

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// NewSQLiteRepository constructs a SQLite repository.
func NewSQLiteRepository(sqlDB *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{sqlDB: sqlDB, now: time.Now}
}

// CreateTask inserts task and returns it with the storage assigned id.
func (r *SQLiteRepository) CreateTask(ctx context.Context, task Task) (Task, error) {
	createdAt := r.now().UTC().Truncate(time.Millisecond)
	res, err := r.sqlDB.ExecContext(ctx,
		`INSERT INTO tasks (title, content, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		task.Title, task.Content, task.OwnerID, createdAt.UnixMilli(),
	)
	if err != nil {
		if db.IsSQLiteForeignKeyViolation(err) {
			return Task{}, ErrUnknownOwner
		}
		return Task{}, fmt.Errorf("tasks: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, fmt.Errorf("tasks: last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = createdAt
	return task, nil
}

// ListTasksByOwner returns the owner's tasks, oldest first.
func (r *SQLiteRepository) ListTasksByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	rows, err := r.sqlDB.QueryContext(ctx, `
		SELECT id, title, content, owner_id, created_at
		FROM tasks
		WHERE owner_id = ?
		ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()

	list := []Task{}
	for rows.Next() {
		var (
			t         Task
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("tasks: scan: %w", err)
		}
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		list = append(list, t)
	}
	return list, rows.Err()
}

var _ Repository = (*SQLiteRepository)(nil)
