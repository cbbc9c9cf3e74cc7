// Package users persists accounts, roles and the grants between them.
package users

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned when a user or role does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateUsername is returned when the case-folded username is already taken.
	ErrDuplicateUsername = errors.New("users: duplicate username")
)

// User is an account together with the names of its granted roles, earliest grant first.
type User struct {
	ID           string
	Username     string
	FullName     *string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// Role is a named permission group.
type Role struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Store is the persistence port used by the auth service.
type Store interface {
	FindUserByID(ctx context.Context, id string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	CreateUser(ctx context.Context, user User) (User, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	GrantRole(ctx context.Context, userID string, roleID int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UsernameKey returns the comparison key for username. Two usernames that
// differ only in case share a key.
func UsernameKey(username string) string {
	// A Caser is stateful, so one is built per call.
	return cases.Fold().String(username)
}
