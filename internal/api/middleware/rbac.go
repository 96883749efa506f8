package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/fitfuel/identity-service/internal/core/domain"
)

// RequireRole enforces role-based access control. Anonymous requests get
// domain.ErrUnauthenticated, authenticated callers without one of the
// allowed roles get domain.ErrForbidden.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if _, ok := allowed[id.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
