package ports

import (
	"context"

	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
}

// LoginInput carries a username or an email plus the plaintext password.
type LoginInput struct {
	UsernameOrEmail string
	Password        string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	TokenType string
	User      domain.UserSummary
}

// AuthService handles registration and login.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
}

// ChangePasswordInput is the self-service password change request.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// AccountService implements the password-management operations bound to a
// resolved identity. Callers enforce authentication and role at the endpoint.
type AccountService interface {
	ChangePassword(ctx context.Context, identity auth.Identity, in ChangePasswordInput) error
	ForcePasswordChange(ctx context.Context, targetUsername string) error
}

// AdminChangePasswordInput lets an administrator replace a user's password
// given that user's current one.
type AdminChangePasswordInput struct {
	Username        string
	CurrentPassword string
	NewPassword     string
}

// UserStats summarises the account population by role.
type UserStats struct {
	TotalUsers   int64
	AdminUsers   int64
	RegularUsers int64
}

// AdminService backs the administrator-only endpoints.
type AdminService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	Stats(ctx context.Context) (*UserStats, error)
	ChangeUserPassword(ctx context.Context, in AdminChangePasswordInput) error
}
