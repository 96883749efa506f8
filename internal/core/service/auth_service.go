package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

const tokenTypeBearer = "Bearer"

// CredentialHasher is the hashing surface the services need on top of
// auth.PasswordHasher.
type CredentialHasher interface {
	auth.PasswordHasher
	NeedsRehash(hash string) bool
	DummyHash() string
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject, role string, now time.Time) (string, error)
}

// AuthService implements registration and login.
type AuthService struct {
	repo     ports.UserRepository
	hasher   CredentialHasher
	tokens   TokenIssuer
	throttle ports.LoginThrottle
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService wires an AuthService. throttle may be nil, in which case
// failed logins are not rate limited.
func NewAuthService(
	repo ports.UserRepository,
	hasher CredentialHasher,
	tokens TokenIssuer,
	throttle ports.LoginThrottle,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		throttle: throttle,
		log:      log,
		now:      time.Now,
	}
}

// Register creates a ROLE_USER account. Checks run in a fixed order so the
// caller always gets a single, deterministic failure: username, then email,
// then password confirmation.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	taken, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: check username: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	taken, err = s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: check email: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}

	if in.Password != in.ConfirmPassword {
		return nil, domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:               in.Username,
		Email:                  in.Email,
		PasswordHash:           hash,
		FullName:               in.FullName,
		Enabled:                true,
		Role:                   domain.RoleUser,
		PasswordChangeRequired: false,
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	if err != nil {
		// Lost a race with a concurrent registration between the existence
		// checks and the insert.
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	s.log.Info().Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a session token.
//
// Unknown identifiers and wrong passwords produce the same
// domain.ErrInvalidCredentials, and a hash verification runs in both cases.
// The enabled flag is checked only after the credentials verified.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	identifier := strings.TrimSpace(in.UsernameOrEmail)

	if !s.allowed(ctx, identifier) {
		return nil, domain.ErrTooManyAttempts
	}

	// A blank identifier matches no account; it still pays for a verify and
	// counts as a failure.
	var user *domain.User
	if identifier != "" {
		var err error
		user, err = s.resolve(ctx, identifier)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
	}

	target := s.hasher.DummyHash()
	if user != nil {
		target = user.PasswordHash
	}

	ok, err := s.hasher.Verify(in.Password, target)
	if err != nil && user != nil {
		return nil, fmt.Errorf("login: verify password: %w", err)
	}
	if user == nil || in.Password == "" || !ok {
		s.recordFailure(ctx, identifier)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Enabled {
		return nil, domain.ErrAccountDisabled
	}

	s.resetThrottle(ctx, identifier)
	s.upgradeHash(ctx, user, in.Password)

	token, err := s.tokens.Issue(user.Username, user.Role.String(), s.now())
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Info().Str("username", user.Username).Str("role", user.Role.String()).Msg("user logged in")

	return &ports.LoginResult{
		Token:     token,
		TokenType: tokenTypeBearer,
		User:      user.Summary(),
	}, nil
}

// resolve looks the identifier up as a username first, then as an email.
func (s *AuthService) resolve(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find by username: %w", err)
	}

	user, err = s.repo.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find by email: %w", err)
	}
	return user, nil
}

// upgradeHash re-hashes the password with the current algorithm and cost.
// Failures are logged; the login still succeeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn().Err(err).Str("username", user.Username).Msg("password rehash failed")
		return
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		s.log.Warn().Err(err).Str("username", user.Username).Msg("failed to store rehashed password")
	}
}

func throttleKey(identifier string) string {
	return strings.ToLower(identifier)
}

// allowed fails open when the throttle itself errors.
func (s *AuthService) allowed(ctx context.Context, identifier string) bool {
	if s.throttle == nil {
		return true
	}
	ok, err := s.throttle.Allowed(ctx, throttleKey(identifier))
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		return true
	}
	return ok
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, throttleKey(identifier)); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
}

func (s *AuthService) resetThrottle(ctx context.Context, identifier string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, throttleKey(identifier)); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login throttle")
	}
}
