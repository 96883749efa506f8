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

type accountService struct {
	repo   ports.UserRepository
	hasher auth.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

// NewAccountService returns an AccountService implementation.
func NewAccountService(repo ports.UserRepository, hasher auth.PasswordHasher, log zerolog.Logger) ports.AccountService {
	return &accountService{
		repo:   repo,
		hasher: hasher,
		log:    log,
		now:    time.Now,
	}
}

// ChangePassword replaces the caller's password and clears the
// password-change-required flag.
func (s *accountService) ChangePassword(ctx context.Context, identity auth.Identity, in ports.ChangePasswordInput) error {
	user, err := s.load(ctx, identity.Username)
	if err != nil {
		return err
	}

	// 1. The caller must know the current password.
	ok, err := s.hasher.Verify(in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: verify current: %w", err)
	}
	if !ok {
		return domain.ErrIncorrectPassword
	}

	// 2. Confirmation must match.
	if in.NewPassword != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	// 3. Reject no-op changes.
	same, err := s.hasher.Verify(in.NewPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: compare new: %w", err)
	}
	if same {
		return domain.ErrPasswordUnchanged
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}

	user.PasswordHash = hash
	user.PasswordChangeRequired = false
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("change password: update user: %w", err)
	}

	s.log.Info().Str("username", user.Username).Msg("password changed")
	return nil
}

// ForcePasswordChange flags the target account as requiring a new password.
// The stored hash is left untouched.
func (s *accountService) ForcePasswordChange(ctx context.Context, targetUsername string) error {
	user, err := s.load(ctx, targetUsername)
	if err != nil {
		return err
	}

	user.PasswordChangeRequired = true
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("force password change: update user: %w", err)
	}

	s.log.Info().Str("username", user.Username).Msg("password change required")
	return nil
}

func (s *accountService) load(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
