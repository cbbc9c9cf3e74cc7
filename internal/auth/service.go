// Package auth implements registration, login, token resolution and role grants.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/taskboard/internal/shared"
	"github.com/odyssey-erp/taskboard/internal/token"
	"github.com/odyssey-erp/taskboard/internal/users"
	"github.com/odyssey-erp/taskboard/internal/validation"
)

// Built-in role names.
const (
	// DefaultRole is granted to every new account unless configured otherwise.
	DefaultRole = "User"
	// DefaultAdminRole gates account administration.
	DefaultAdminRole = "Admin"
)

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(claims token.Claims) (string, error)
	Verify(raw string) (token.Claims, error)
}

// Config tunes the auth flows.
type Config struct {
	// DefaultRole is granted at registration. Empty grants nothing.
	DefaultRole string
	// RegistrationPassword is the password policy applied at sign-up.
	RegistrationPassword validation.PasswordOptions
}

// DefaultConfig grants "User" and waives the symbol rule at registration.
func DefaultConfig() Config {
	return Config{
		DefaultRole:          DefaultRole,
		RegistrationPassword: validation.PasswordOptions{AllowMissingSymbol: true},
	}
}

// Service wraps authentication business rules.
type Service struct {
	store  users.Store
	tokens TokenIssuer
	hasher Hasher
	cfg    Config

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service.
func NewService(store users.Store, tokens TokenIssuer, hasher Hasher, cfg Config) *Service {
	return &Service{store: store, tokens: tokens, hasher: hasher, cfg: cfg}
}

func invalidLogin() *shared.Failure {
	return shared.NewFailure(shared.ErrValidation, shared.Detail{
		Title:       InvalidLogin,
		Description: "Incorrect username or password",
	})
}

func unauthenticated() *shared.Failure {
	f := shared.NewFailure(shared.ErrUnauthenticated, shared.Detail{
		Title:       CredentialsRejected,
		Description: CredentialsRejected,
	})
	f.Challenge = "Bearer"
	return f
}

func usernameTaken() *shared.Failure {
	return shared.NewFailure(shared.ErrConflict, shared.Detail{
		Title:       validation.InvalidUsername,
		Description: "User with that username already exists",
	})
}

func unknownUser() *shared.Failure {
	return shared.NewFailure(shared.ErrNotFound, shared.Detail{
		Title:       InvalidUserID,
		Description: "No user with this id was found",
	})
}

// Register creates an account and grants the default role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (PublicUser, error) {
	var failure *shared.Failure
	for _, err := range []error{
		validation.ValidateUsername(req.Username),
		validation.ValidatePassword(req.Password, s.cfg.RegistrationPassword),
	} {
		f, ok := shared.AsFailure(err)
		if !ok {
			continue
		}
		if failure == nil {
			failure = f
			continue
		}
		failure.Merge(f)
	}
	if failure != nil {
		return PublicUser{}, failure
	}

	if _, err := s.store.FindUserByUsername(ctx, req.Username); err == nil {
		return PublicUser{}, usernameTaken()
	} else if !errors.Is(err, users.ErrNotFound) {
		return PublicUser{}, fmt.Errorf("auth: lookup username: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return PublicUser{}, err
	}

	created, err := s.store.CreateUser(ctx, users.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUsername) {
			return PublicUser{}, usernameTaken()
		}
		return PublicUser{}, fmt.Errorf("auth: create user: %w", err)
	}

	if s.cfg.DefaultRole == "" {
		return toPublic(created), nil
	}
	return s.GrantRole(ctx, created.ID, s.cfg.DefaultRole)
}

// Login checks credentials and returns a signed access token. Unknown usernames
// and wrong passwords produce the same failure.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, error) {
	user, err := s.store.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Pay the hashing cost anyway so timing does not reveal the miss.
			_ = s.hasher.Compare(s.placeholderHash(), req.Password)
			return "", invalidLogin()
		}
		return "", fmt.Errorf("auth: lookup username: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return "", invalidLogin()
	}

	// Roles are ordered by grant time, so the first is the earliest grant.
	role := ""
	if len(user.Roles) > 0 {
		role = user.Roles[0]
	}
	raw, err := s.tokens.Issue(token.Claims{UserID: user.ID, Role: role})
	if err != nil {
		return "", fmt.Errorf("auth: issue token: %w", err)
	}
	return raw, nil
}

func (s *Service) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// CurrentUser resolves the account behind an access token. Every failure,
// including a valid token for a missing account, is the same unauthenticated
// failure.
func (s *Service) CurrentUser(ctx context.Context, raw string) (PublicUser, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return PublicUser{}, unauthenticated()
	}
	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return PublicUser{}, unauthenticated()
		}
		return PublicUser{}, fmt.Errorf("auth: load current user: %w", err)
	}
	return toPublic(user), nil
}

// GrantRole attaches roleName to the user, creating the role when it does not
// exist yet. Granting a held role changes nothing.
func (s *Service) GrantRole(ctx context.Context, userID, roleName string) (PublicUser, error) {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return PublicUser{}, shared.NewFailure(shared.ErrValidation, shared.Detail{
			Title:       InvalidRoleName,
			Description: "Role name must not be empty",
		})
	}

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return PublicUser{}, unknownUser()
		}
		return PublicUser{}, fmt.Errorf("auth: load user: %w", err)
	}

	role, err := s.store.FindRoleByName(ctx, roleName)
	if errors.Is(err, users.ErrNotFound) {
		role, err = s.store.CreateRole(ctx, users.Role{Name: roleName})
	}
	if err != nil {
		return PublicUser{}, fmt.Errorf("auth: resolve role %q: %w", roleName, err)
	}

	updated, err := s.store.GrantRole(ctx, userID, role.ID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return PublicUser{}, unknownUser()
		}
		return PublicUser{}, fmt.Errorf("auth: grant role: %w", err)
	}
	return toPublic(updated), nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]PublicUser, error) {
	list, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	out := make([]PublicUser, 0, len(list))
	for _, u := range list {
		out = append(out, toPublic(u))
	}
	return out, nil
}
