package auth

import "github.com/fitfuel/identity-service/internal/core/domain"

// Identity is the caller resolved from a valid session token for the
// duration of one request.
type Identity struct {
	Username string
	Role     domain.Role
}

// HasRole reports whether the identity carries one of roles.
func (i Identity) HasRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
