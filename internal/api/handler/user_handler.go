package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fitfuel/identity-service/internal/api/metrics"
	"github.com/fitfuel/identity-service/internal/api/middleware"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

// UserHandler serves the password management endpoints under /user.
type UserHandler struct {
	service ports.AccountService
}

func NewUserHandler(service ports.AccountService) *UserHandler {
	return &UserHandler{service: service}
}

// ChangePassword handles POST /user/change-password for the calling user.
//
// @Summary      Change own password
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /user/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.service.ChangePassword(c.Request().Context(), id, ports.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	metrics.PasswordChangesTotal.WithLabelValues("self", changeResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully", Success: true})
}

// ForcePasswordChange handles POST /user/force-password-change/:username.
//
// @Summary      Require a user to change password on next login
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Target username"
// @Success      200       {object}  messageResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /user/force-password-change/{username} [post]
func (h *UserHandler) ForcePasswordChange(c echo.Context) error {
	err := h.service.ForcePasswordChange(c.Request().Context(), c.Param("username"))
	metrics.PasswordChangesTotal.WithLabelValues("forced", changeResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "User will be required to change password on next login",
		Success: true,
	})
}

func changeResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrIncorrectPassword),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrPasswordUnchanged):
		return metrics.ResultFailure
	default:
		return metrics.ResultError
	}
}
