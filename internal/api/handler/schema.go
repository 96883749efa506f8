package handler

import (
	"time"

	"github.com/fitfuel/identity-service/internal/core/domain"
)

// errorResponse is the envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Status  int               `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success,omitempty"`
}

// --- Auth ---

type registerRequest struct {
	Username        string `json:"username"        validate:"required,max=50"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	FullName        string `json:"fullName"        validate:"max=100"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password"        validate:"required"`
}

type loginResponse struct {
	Token     string             `json:"token"`
	TokenType string             `json:"tokenType"`
	User      domain.UserSummary `json:"user"`
}

// --- User ---

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// --- Admin ---

type adminChangePasswordRequest struct {
	Username        string `json:"username"        validate:"required"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8"`
}

type userResponse struct {
	ID                     string      `json:"id"`
	Username               string      `json:"username"`
	Email                  string      `json:"email"`
	FullName               string      `json:"fullName,omitempty"`
	Enabled                bool        `json:"enabled"`
	Role                   domain.Role `json:"role"`
	PasswordChangeRequired bool        `json:"passwordChangeRequired"`
	CreatedAt              time.Time   `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                     u.ID,
		Username:               u.Username,
		Email:                  u.Email,
		FullName:               u.FullName,
		Enabled:                u.Enabled,
		Role:                   u.Role,
		PasswordChangeRequired: u.PasswordChangeRequired,
		CreatedAt:              u.CreatedAt,
	}
}

type statsResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	AdminUsers   int64 `json:"adminUsers"`
	RegularUsers int64 `json:"regularUsers"`
}
