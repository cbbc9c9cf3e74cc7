package auth

import (
	"github.com/odyssey-erp/taskboard/internal/users"
)

// Failure titles produced by the auth flows.
const (
	InvalidLogin    = "InvalidLogin"
	InvalidUserID   = "InvalidUserID"
	InvalidRoleName = "InvalidRoleName"
	// CredentialsRejected is both title and description of the unauthenticated failure.
	CredentialsRejected = "Could not validate credentials"
)

// TokenType is reported alongside issued access tokens.
const TokenType = "bearer"

// PublicUser is the outward view of an account. It never carries the password hash.
type PublicUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName *string  `json:"full_name"`
	Roles    []string `json:"roles"`
}

func toPublic(u users.User) PublicUser {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return PublicUser{ID: u.ID, Username: u.Username, FullName: u.FullName, Roles: roles}
}

// RegisterRequest carries sign-up input.
type RegisterRequest struct {
	Username string  `json:"username"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Password string  `json:"password"`
}

// LoginRequest carries sign-in input.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GrantRoleRequest names the role to attach.
type GrantRoleRequest struct {
	Role string `json:"role" validate:"required,max=255"`
}

// TokenResponse is returned on successful sign-in.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
