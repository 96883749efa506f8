// Package memory holds a process-local UserRepository used by the memory
// store driver and by end-to-end tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

// UserRepository keeps accounts in a map guarded by a RWMutex.
type UserRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.User
	order []string
}

// NewUserRepository returns an empty in-memory store.
func NewUserRepository() *UserRepository {
	return &UserRepository{byID: make(map[string]*domain.User)}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

// findLocked requires r.mu to be held.
func (r *UserRepository) findLocked(match func(*domain.User) bool) *domain.User {
	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			return u
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dup := r.findLocked(func(u *domain.User) bool {
		return u.Username == user.Username || u.Email == user.Email
	})
	if dup != nil {
		return nil, domain.ErrUserExists
	}

	created := clone(user)
	created.ID = uuid.NewString()
	r.byID[created.ID] = created
	r.order = append(r.order, created.ID)
	return clone(created), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.findLocked(func(u *domain.User) bool { return u.Username == username }); u != nil {
		return clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.findLocked(func(u *domain.User) bool { return u.Email == email }); u != nil {
		return clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	dup := r.findLocked(func(u *domain.User) bool {
		return u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email)
	})
	if dup != nil {
		return domain.ErrUserExists
	}
	r.byID[user.ID] = clone(user)
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.byID[id]))
	}
	return out, nil
}

func (r *UserRepository) Count(_ context.Context, role domain.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.byID {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (r *UserRepository) Ping(context.Context) error {
	return nil
}
