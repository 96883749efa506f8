package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fitfuel/identity-service/internal/api/metrics"
	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
)

const identityKey = "identity"

// TokenValidator checks a bearer token as of now.
type TokenValidator interface {
	Validate(token string, now time.Time) (*auth.Claims, error)
}

// SubjectChecker confirms that a token subject still names an account.
type SubjectChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// Identity resolves the caller from the Authorization header and stores it
// on the echo context. It never rejects a request: a missing, invalid or
// expired token, or a subject that no longer exists, leaves the request
// anonymous. Use RequireAuth or RequireRole to enforce access.
func Identity(tokens TokenValidator, users SubjectChecker, clock func() time.Time, log zerolog.Logger) echo.MiddlewareFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			claims, err := tokens.Validate(raw, clock())
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return next(c)
			}

			role := domain.Role(claims.Role)
			if !role.Valid() {
				metrics.TokenValidationsTotal.WithLabelValues("malformed").Inc()
				return next(c)
			}

			exists, err := users.ExistsByUsername(c.Request().Context(), claims.Subject)
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues(metrics.ResultError).Inc()
				log.Warn().Err(err).Str("username", claims.Subject).Msg("identity lookup failed")
				return next(c)
			}
			if !exists {
				metrics.TokenValidationsTotal.WithLabelValues("unknown_subject").Inc()
				return next(c)
			}

			metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
			SetIdentity(c, auth.Identity{Username: claims.Subject, Role: role})
			return next(c)
		}
	}
}

// SetIdentity attaches id to the request context.
func SetIdentity(c echo.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity resolved for this request, if any.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// RequireAuth rejects anonymous requests with domain.ErrUnauthenticated.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); !ok {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func validationResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
