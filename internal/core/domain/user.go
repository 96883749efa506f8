package domain

import (
	"errors"
	"time"
)

// Role is the single authorization tag carried by every account.
type Role string

const (
	RoleAdmin Role = "ROLE_ADMIN"
	RoleUser  Role = "ROLE_USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (r Role) String() string {
	return string(r)
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrPasswordUnchanged  = errors.New("new password must differ from current password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
)

// User models an account known to the identity service.
// PasswordHash is never serialized.
type User struct {
	ID                     string    `json:"id"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	PasswordHash           string    `json:"-"`
	FullName               string    `json:"fullName,omitempty"`
	Enabled                bool      `json:"enabled"`
	Role                   Role      `json:"role"`
	PasswordChangeRequired bool      `json:"passwordChangeRequired"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// UserSummary is the public view of an account returned after login.
type UserSummary struct {
	ID                     string `json:"id"`
	Username               string `json:"username"`
	Email                  string `json:"email"`
	Role                   Role   `json:"role"`
	PasswordChangeRequired bool   `json:"passwordChangeRequired"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:                     u.ID,
		Username:               u.Username,
		Email:                  u.Email,
		Role:                   u.Role,
		PasswordChangeRequired: u.PasswordChangeRequired,
	}
}
