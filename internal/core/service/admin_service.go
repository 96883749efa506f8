package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

type adminService struct {
	repo   ports.UserRepository
	hasher auth.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

// NewAdminService returns an AdminService implementation.
func NewAdminService(repo ports.UserRepository, hasher auth.PasswordHasher, log zerolog.Logger) ports.AdminService {
	return &adminService{repo: repo, hasher: hasher, log: log, now: time.Now}
}

func (s *adminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *adminService) Stats(ctx context.Context) (*ports.UserStats, error) {
	total, err := s.repo.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	admins, err := s.repo.Count(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	regular, err := s.repo.Count(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("count regular users: %w", err)
	}
	return &ports.UserStats{TotalUsers: total, AdminUsers: admins, RegularUsers: regular}, nil
}

// ChangeUserPassword sets a new password for in.Username after checking the
// account's current password. The password-change-required flag is kept.
func (s *adminService) ChangeUserPassword(ctx context.Context, in ports.AdminChangePasswordInput) error {
	user, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("admin change password: %w", err)
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("admin change password: verify: %w", err)
	}
	if !ok {
		return domain.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("admin change password: hash: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("admin change password: update user: %w", err)
	}

	s.log.Info().Str("username", user.Username).Msg("password changed by administrator")
	return nil
}
