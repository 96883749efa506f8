package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fitfuel/identity-service/internal/api/handler"
	"github.com/fitfuel/identity-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Status  int               `json:"status"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and messages.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message", "error", "status"},
//     where "error" repeats the human-readable message.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(resp.Status)
			return
		}
		_ = c.JSON(resp.Status, resp)
	}
}

type mapping struct {
	target  error
	status  int
	message string
}

// Known domain errors → deterministic HTTP codes. Order matters only for
// errors that wrap more than one sentinel.
var domainErrors = []mapping{
	{domain.ErrDuplicateUsername, http.StatusBadRequest, "Username already taken"},
	{domain.ErrDuplicateEmail, http.StatusBadRequest, "Email already in use"},
	{domain.ErrUserExists, http.StatusBadRequest, "Username already taken"},
	{domain.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
	{domain.ErrIncorrectPassword, http.StatusBadRequest, "Current password is incorrect"},
	{domain.ErrPasswordUnchanged, http.StatusBadRequest, "New password must be different from current password"},
	{domain.ErrUserNotFound, http.StatusBadRequest, "User not found"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{domain.ErrAccountDisabled, http.StatusUnauthorized, "Account is disabled"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required"},
	{domain.ErrForbidden, http.StatusForbidden, "Access denied"},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests, "Too many failed login attempts, try again later"},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) errorResponse {
	// Request validation failures carry one message per field.
	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return errorResponse{
			Message: "Validation failed",
			Errors:  ve.Fields,
			Status:  http.StatusBadRequest,
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		return errorResponse{
			Message: msg,
			Error:   msg,
			Status:  he.Code,
		}
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return errorResponse{
				Message: m.message,
				Error:   m.message,
				Status:  m.status,
			}
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return errorResponse{
		Message: "Internal server error",
		Error:   "internal server error",
		Status:  http.StatusInternalServerError,
	}
}
