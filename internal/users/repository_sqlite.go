package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/taskboard/internal/platform/db"
)

type sqlQuerier interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// SQLiteRepository persists users in an embedded SQLite database.
type SQLiteRepository struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// NewSQLiteRepository constructs a SQLite backed repository.
func NewSQLiteRepository(sqlDB *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{sqlDB: sqlDB, now: time.Now}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

const sqliteUserColumns = `id, username, full_name, password_hash, created_at`

func scanSQLiteUser(scan func(...any) error) (User, error) {
	var (
		u         User
		fullName  sql.NullString
		createdAt int64
	)
	if err := scan(&u.ID, &u.Username, &fullName, &u.PasswordHash, &createdAt); err != nil {
		return User{}, err
	}
	if fullName.Valid {
		name := fullName.String
		u.FullName = &name
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// FindUserByID loads a user and its roles.
func (r *SQLiteRepository) FindUserByID(ctx context.Context, id string) (User, error) {
	return r.findUser(ctx, r.sqlDB, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
}

// FindUserByUsername loads a user by username, ignoring case.
func (r *SQLiteRepository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return r.findUser(ctx, r.sqlDB, `SELECT `+sqliteUserColumns+` FROM users WHERE username_key = ?`, UsernameKey(username))
}

func (r *SQLiteRepository) findUser(ctx context.Context, q sqlQuerier, query string, arg any) (User, error) {
	u, err := scanSQLiteUser(q.QueryRowContext(ctx, query, arg).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: find user: %w", err)
	}
	roles, err := r.rolesOf(ctx, q, u.ID)
	if err != nil {
		return User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *SQLiteRepository) rolesOf(ctx context.Context, q sqlQuerier, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT r.name
		FROM users_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY ur.granted_at, ur.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("users: list roles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("users: scan role: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// FindRoleByName loads a role by exact name.
func (r *SQLiteRepository) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var (
		role      Role
		createdAt int64
	)
	err := r.sqlDB.QueryRowContext(ctx, `SELECT id, name, created_at FROM roles WHERE name = ?`, name).
		Scan(&role.ID, &role.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("users: find role: %w", err)
	}
	role.CreatedAt = fromMillis(createdAt)
	return role, nil
}

// CreateUser inserts a new account. The caller supplies the id and password hash.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user User) (User, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	var created User
	err := db.WithSQLiteTx(ctx, r.sqlDB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, username_key, full_name, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			user.ID, user.Username, UsernameKey(user.Username), user.FullName, user.PasswordHash, toMillis(createdAt),
		)
		if err != nil {
			if db.IsSQLiteUniqueViolation(err) {
				return ErrDuplicateUsername
			}
			return fmt.Errorf("users: insert user: %w", err)
		}
		created, err = r.findUser(ctx, tx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, user.ID)
		return err
	})
	return created, err
}

// CreateRole inserts role unless one with the same name exists, and returns the stored row.
func (r *SQLiteRepository) CreateRole(ctx context.Context, role Role) (Role, error) {
	_, err := r.sqlDB.ExecContext(ctx,
		`INSERT INTO roles (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		role.Name, toMillis(r.now()),
	)
	if err != nil {
		return Role{}, fmt.Errorf("users: insert role: %w", err)
	}
	return r.FindRoleByName(ctx, role.Name)
}

// GrantRole adds roleID to the user's grants. Granting an already held role is a no-op.
func (r *SQLiteRepository) GrantRole(ctx context.Context, userID string, roleID int64) (User, error) {
	var updated User
	err := db.WithSQLiteTx(ctx, r.sqlDB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users_roles (user_id, role_id, granted_at)
			VALUES (?, ?, ?)
			ON CONFLICT (user_id, role_id) DO NOTHING`,
			userID, roleID, toMillis(r.now()),
		)
		if err != nil {
			if db.IsSQLiteForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("users: grant role: %w", err)
		}
		updated, err = r.findUser(ctx, tx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, userID)
		return err
	})
	return updated, err
}

// ListUsers returns all users ordered by creation time.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.sqlDB.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("users: list users: %w", err)
	}
	var list []User
	for rows.Next() {
		u, err := scanSQLiteUser(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("users: scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Release the single connection before the per-user role queries.
	_ = rows.Close()

	for i := range list {
		roles, err := r.rolesOf(ctx, r.sqlDB, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Roles = roles
	}
	return list, nil
}

var _ Store = (*SQLiteRepository)(nil)
