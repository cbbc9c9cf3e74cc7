package users

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/taskboard/internal/platform/db"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	sqlDB, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLiteRepository(sqlDB)
}

func strPtr(s string) *string { return &s }

func TestSQLiteCreateAndFindUser(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	created, err := repo.CreateUser(ctx, User{
		ID:           "u-1",
		Username:     "Alice.Smith",
		FullName:     strPtr("Alice Smith"),
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.ID)
	assert.Equal(t, "Alice.Smith", created.Username)
	require.NotNil(t, created.FullName)
	assert.Equal(t, "Alice Smith", *created.FullName)
	assert.Empty(t, created.Roles)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := repo.FindUserByUsername(ctx, "alice.smith")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byName.ID)

	byID, err := repo.FindUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	_, err = repo.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindUserByUsername(ctx, "nobody1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteCreateUserWithoutFullName(t *testing.T) {
	repo := openTestRepo(t)
	created, err := repo.CreateUser(context.Background(), User{ID: "u-1", Username: "bob123", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Nil(t, created.FullName)
}

func TestSQLiteCreateUserRejectsCaseInsensitiveDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.CreateUser(ctx, User{ID: "u-1", Username: "charlie", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, User{ID: "u-2", Username: "CHARLIE", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = repo.FindUserByID(ctx, "u-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteConcurrentRegistrationKeepsOneUser(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i, name := range []string{"racer1", "RACER1", "Racer1", "rAcEr1"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, err := repo.CreateUser(ctx, User{ID: string(rune('a' + i)), Username: name, PasswordHash: "h"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrDuplicateUsername)
		}(i, name)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestSQLiteCreateRoleIsInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.FindRoleByName(ctx, "Admin")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := repo.CreateRole(ctx, Role{Name: "Admin"})
	require.NoError(t, err)
	second, err := repo.CreateRole(ctx, Role{Name: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := repo.FindRoleByName(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestSQLiteGrantRoleOrdersAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	_, err := repo.CreateUser(ctx, User{ID: "u-1", Username: "dana01", PasswordHash: "h"})
	require.NoError(t, err)
	user, err := repo.CreateRole(ctx, Role{Name: "User"})
	require.NoError(t, err)
	admin, err := repo.CreateRole(ctx, Role{Name: "Admin"})
	require.NoError(t, err)

	// Admin granted first even though its id is larger.
	got, err := repo.GrantRole(ctx, "u-1", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, got.Roles)

	clock = clock.Add(time.Second)
	got, err = repo.GrantRole(ctx, "u-1", user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "User"}, got.Roles)

	clock = clock.Add(time.Second)
	got, err = repo.GrantRole(ctx, "u-1", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "User"}, got.Roles)
}

func TestSQLiteGrantRoleTiesFallBackToGrantOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.CreateUser(ctx, User{ID: "u-1", Username: "erin01", PasswordHash: "h"})
	require.NoError(t, err)
	a, err := repo.CreateRole(ctx, Role{Name: "A"})
	require.NoError(t, err)
	b, err := repo.CreateRole(ctx, Role{Name: "B"})
	require.NoError(t, err)

	_, err = repo.GrantRole(ctx, "u-1", b.ID)
	require.NoError(t, err)
	got, err := repo.GrantRole(ctx, "u-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, got.Roles)
}

func TestSQLiteGrantRoleUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	role, err := repo.CreateRole(ctx, Role{Name: "User"})
	require.NoError(t, err)

	_, err = repo.GrantRole(ctx, "ghost", role.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListUsers(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	list, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.CreateUser(ctx, User{ID: "u-1", Username: "first1", PasswordHash: "h"})
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	_, err = repo.CreateUser(ctx, User{ID: "u-2", Username: "second", PasswordHash: "h"})
	require.NoError(t, err)
	role, err := repo.CreateRole(ctx, Role{Name: "User"})
	require.NoError(t, err)
	_, err = repo.GrantRole(ctx, "u-2", role.ID)
	require.NoError(t, err)

	list, err = repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u-1", list[0].ID)
	assert.Empty(t, list[0].Roles)
	assert.Equal(t, []string{"User"}, list[1].Roles)
}

func TestUsernameKey(t *testing.T) {
	assert.Equal(t, UsernameKey("Alice.Smith"), UsernameKey("ALICE.smith"))
	assert.NotEqual(t, UsernameKey("alice1"), UsernameKey("alice2"))
}
