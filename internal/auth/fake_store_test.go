package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/taskboard/internal/users"
)

type grant struct {
	roleID int64
	seq    int
}

// memoryStore is a map-backed users.Store with the same set and uniqueness
// semantics as the SQL repositories.
type memoryStore struct {
	mu          sync.Mutex
	users       map[string]users.User
	byKey       map[string]string
	roles       map[string]users.Role
	roleNames   map[int64]string
	grants      map[string][]grant
	nextRoleID  int64
	seq         int
	roleCreates int

	failFind error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[string]users.User{},
		byKey:     map[string]string{},
		roles:     map[string]users.Role{},
		roleNames: map[int64]string{},
		grants:    map[string][]grant{},
	}
}

func (m *memoryStore) withRoles(u users.User) users.User {
	gs := append([]grant(nil), m.grants[u.ID]...)
	sort.Slice(gs, func(i, j int) bool { return gs[i].seq < gs[j].seq })
	u.Roles = make([]string, 0, len(gs))
	for _, g := range gs {
		u.Roles = append(u.Roles, m.roleNames[g.roleID])
	}
	return u
}

func (m *memoryStore) FindUserByID(_ context.Context, id string) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return users.User{}, m.failFind
	}
	u, ok := m.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return m.withRoles(u), nil
}

func (m *memoryStore) FindUserByUsername(_ context.Context, username string) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return users.User{}, m.failFind
	}
	id, ok := m.byKey[users.UsernameKey(username)]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return m.withRoles(m.users[id]), nil
}

func (m *memoryStore) FindRoleByName(_ context.Context, name string) (users.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[name]
	if !ok {
		return users.Role{}, users.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) CreateUser(_ context.Context, user users.User) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := users.UsernameKey(user.Username)
	if _, taken := m.byKey[key]; taken {
		return users.User{}, users.ErrDuplicateUsername
	}
	if user.ID == "" {
		return users.User{}, errors.New("missing id")
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	m.byKey[key] = user.ID
	return m.withRoles(user), nil
}

func (m *memoryStore) CreateRole(_ context.Context, role users.Role) (users.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.roles[role.Name]; ok {
		return existing, nil
	}
	m.nextRoleID++
	m.roleCreates++
	role.ID = m.nextRoleID
	role.CreatedAt = time.Now()
	m.roles[role.Name] = role
	m.roleNames[role.ID] = role.Name
	return role, nil
}

func (m *memoryStore) GrantRole(_ context.Context, userID string, roleID int64) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if _, ok := m.roleNames[roleID]; !ok {
		return users.User{}, users.ErrNotFound
	}
	for _, g := range m.grants[userID] {
		if g.roleID == roleID {
			return m.withRoles(u), nil
		}
	}
	m.seq++
	m.grants[userID] = append(m.grants[userID], grant{roleID: roleID, seq: m.seq})
	return m.withRoles(u), nil
}

func (m *memoryStore) ListUsers(_ context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, m.withRoles(u))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}

var _ users.Store = (*memoryStore)(nil)
