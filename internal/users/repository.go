package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/taskboard/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, full_name, password_hash, created_at`

// FindUserByID loads a user and its roles.
func (r *Repository) FindUserByID(ctx context.Context, id string) (User, error) {
	return r.findUser(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindUserByUsername loads a user by username, ignoring case.
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return r.findUser(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE username_key = $1`, UsernameKey(username))
}

func (r *Repository) findUser(ctx context.Context, q dbtx, query string, arg any) (User, error) {
	var u User
	err := q.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (r *Repository) rolesOf(ctx context.Context, q dbtx, userID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT r.name
		FROM users_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.granted_at, ur.role_id`, userID)
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
func (r *Repository) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("users: find role: %w", err)
	}
	return role, nil
}

// CreateUser inserts a new account. The caller supplies the id and password hash.
func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO users (id, username, username_key, full_name, password_hash)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			user.ID, user.Username, UsernameKey(user.Username), user.FullName, user.PasswordHash,
		).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateUsername
			}
			return fmt.Errorf("users: insert user: %w", err)
		}
		created, err = r.findUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
		return err
	})
	return created, err
}

// CreateRole inserts role unless one with the same name exists, and returns the stored row.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	if _, err := r.pool.Exec(ctx, `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, role.Name); err != nil {
		return Role{}, fmt.Errorf("users: insert role: %w", err)
	}
	// Separate statement so a row committed by a concurrent insert is visible.
	return r.FindRoleByName(ctx, role.Name)
}

// GrantRole adds roleID to the user's grants. Granting an already held role is a no-op.
// ReadCommitted lets ON CONFLICT skip a grant committed concurrently instead of
// failing serialization.
func (r *Repository) GrantRole(ctx context.Context, userID string, roleID int64) (User, error) {
	var updated User
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("users: check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO users_roles (user_id, role_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrNotFound
			}
			return fmt.Errorf("users: grant role: %w", err)
		}
		updated, err = r.findUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
		return err
	})
	return updated, err
}

// ListUsers returns all users ordered by creation time.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("users: list users: %w", err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("users: scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range list {
		roles, err := r.rolesOf(ctx, r.pool, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Roles = roles
	}
	return list, nil
}

var _ Store = (*Repository)(nil)
