package ports

import (
	"context"

	"github.com/fitfuel/identity-service/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups return domain.ErrUserNotFound when nothing matches; Create returns
// domain.ErrUserExists when a unique username or email constraint is hit.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Update persists the mutable fields of user (password hash, flags,
	// full name, role) in a single atomic write keyed by user.ID.
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
	// Count returns the number of users with role, or all users when role is empty.
	Count(ctx context.Context, role domain.Role) (int64, error)
}

// LoginThrottle tracks failed login attempts per identifier.
type LoginThrottle interface {
	// Allowed reports whether identifier may attempt a login right now.
	Allowed(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
