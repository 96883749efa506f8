package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

// AdminAccount describes the privileged account created on first start.
type AdminAccount struct {
	Username string
	Email    string
	Password string
	FullName string
	Enabled  bool
}

// BootstrapAdmin creates the default administrator unless an account with
// the same username or email already exists. The account starts with
// PasswordChangeRequired set. It reports whether an account was created.
func BootstrapAdmin(
	ctx context.Context,
	repo ports.UserRepository,
	hasher auth.PasswordHasher,
	acct AdminAccount,
	log zerolog.Logger,
) (bool, error) {
	if acct.Password == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return false, nil
	}

	exists, err := repo.ExistsByUsername(ctx, acct.Username)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: check username: %w", err)
	}
	if exists {
		log.Info().Str("username", acct.Username).Msg("admin user already exists")
		return false, nil
	}

	exists, err = repo.ExistsByEmail(ctx, acct.Email)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: check email: %w", err)
	}
	if exists {
		log.Info().Str("email", acct.Email).Msg("admin email already exists")
		return false, nil
	}

	hash, err := hasher.Hash(acct.Password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: hash password: %w", err)
	}

	now := time.Now().UTC()
	if _, err := repo.Create(ctx, &domain.User{
		Username:               acct.Username,
		Email:                  acct.Email,
		PasswordHash:           hash,
		FullName:               acct.FullName,
		Enabled:                acct.Enabled,
		Role:                   domain.RoleAdmin,
		PasswordChangeRequired: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}); err != nil {
		return false, fmt.Errorf("bootstrap admin: create: %w", err)
	}

	log.Warn().
		Str("username", acct.Username).
		Str("email", acct.Email).
		Msg("admin user created; change the password after first login")
	return true, nil
}
