package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[string]*domain.User // keyed by username
	nextID    int
	findErr   error
	existsErr error
	updateErr error
	updates   int
	finds     int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u-%d", r.nextID)
	r.users[created.Username] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u, ok := r.users[username]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.users[username]
	return ok, nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for name, u := range r.users {
		if u.ID == user.ID {
			delete(r.users, name)
			r.users[user.Username] = cloneUser(user)
			r.updates++
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Count(_ context.Context, role domain.Role) (int64, error) {
	var n int64
	for _, u := range r.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

type stubThrottle struct {
	blocked  bool
	checkErr error
	failures map[string]int
	resets   []string
}

func newStubThrottle() *stubThrottle {
	return &stubThrottle{failures: make(map[string]int)}
}

func (t *stubThrottle) Allowed(_ context.Context, id string) (bool, error) {
	if t.checkErr != nil {
		return false, t.checkErr
	}
	return !t.blocked, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, id string) error {
	t.failures[id]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, id string) error {
	t.resets = append(t.resets, id)
	delete(t.failures, id)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestHasher(t *testing.T) *auth.MultiHasher {
	t.Helper()
	h, err := auth.NewHasher(auth.AlgorithmBcrypt, bcrypt.MinCost, auth.DefaultArgon2Params)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func newTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	c, err := auth.NewTokenCodec([]byte("test-signing-key-0123456789abcdef"), time.Hour, "test")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func newTestAuthService(t *testing.T, repo *stubUserRepo, throttle ports.LoginThrottle) *AuthService {
	t.Helper()
	svc := NewAuthService(repo, newTestHasher(t), newTestCodec(t), throttle, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func seedUser(t *testing.T, repo *stubUserRepo, hasher auth.PasswordHasher, u domain.User, password string) *domain.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u.PasswordHash = hash
	created, err := repo.Create(context.Background(), &u)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

func register(svc *AuthService, username, email, pw, confirm string) (*domain.User, error) {
	return svc.Register(context.Background(), ports.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        pw,
		ConfirmPassword: confirm,
	})
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)

	user, err := register(svc, "bob", "b@x.com", "pw1-secret", "pw1-secret")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected ID to be assigned")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected ROLE_USER, got %s", user.Role)
	}
	if user.PasswordChangeRequired {
		t.Fatalf("expected passwordChangeRequired=false")
	}
	if !user.Enabled {
		t.Fatalf("expected account enabled")
	}
	if user.PasswordHash == "pw1-secret" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw1-secret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if !user.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created_at: %v", user.CreatedAt)
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)
	seedUser(t, repo, newTestHasher(t), domain.User{Username: "alice", Email: "alice@x.com", Role: domain.RoleUser, Enabled: true}, "p1")

	// Username is checked before the email and the password confirmation.
	if _, err := register(svc, "alice", "alice@x.com", "p1", "p2"); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if _, err := register(svc, "alice", "new@x.com", "p1", "p1"); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)
	seedUser(t, repo, newTestHasher(t), domain.User{Username: "alice", Email: "alice@x.com", Role: domain.RoleUser, Enabled: true}, "p1")

	if _, err := register(svc, "alice2", "alice@x.com", "p1", "p2"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Register_PasswordMismatch(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)

	if _, err := register(svc, "bob", "b@x.com", "pw1", "pw2"); !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestAuthService_Register_StoreError(t *testing.T) {
	repo := newStubUserRepo()
	repo.existsErr = errors.New("mongo down")
	svc := newTestAuthService(t, repo, nil)

	_, err := register(svc, "bob", "b@x.com", "pw1", "pw1")
	if err == nil || errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func login(svc *AuthService, id, pw string) (*ports.LoginResult, error) {
	return svc.Login(context.Background(), ports.LoginInput{UsernameOrEmail: id, Password: pw})
}

func TestAuthService_Login_ByUsernameAndEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)
	seedUser(t, repo, svc.hasher, domain.User{Username: "carol", Email: "carol@x.com", Role: domain.RoleAdmin, Enabled: true, PasswordChangeRequired: true}, "Secret123")

	for _, id := range []string{"carol", "carol@x.com"} {
		res, err := login(svc, id, "Secret123")
		if err != nil {
			t.Fatalf("login with %q failed: %v", id, err)
		}
		if res.Token == "" || res.TokenType != "Bearer" {
			t.Fatalf("unexpected token result: %+v", res)
		}
		if res.User.Username != "carol" || res.User.Role != domain.RoleAdmin || !res.User.PasswordChangeRequired {
			t.Fatalf("unexpected user summary: %+v", res.User)
		}

		claims, err := newTestCodec(t).Validate(res.Token, fixedNow)
		if err != nil {
			t.Fatalf("token invalid: %v", err)
		}
		if claims.Subject != "carol" || claims.Role != "ROLE_ADMIN" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	}
}

func TestAuthService_Login_NonDistinguishingErrors(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)
	seedUser(t, repo, svc.hasher, domain.User{Username: "dave", Email: "dave@x.com", Role: domain.RoleUser, Enabled: true}, "goodpass")

	_, errWrongPw := login(svc, "dave", "badpass")
	_, errUnknown := login(svc, "ghost", "badpass")

	if !errors.Is(errWrongPw, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrongPw)
	}
	if !errors.Is(errUnknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", errUnknown)
	}
	if errWrongPw.Error() != errUnknown.Error() {
		t.Fatalf("errors must not distinguish: %q vs %q", errWrongPw, errUnknown)
	}
}

func TestAuthService_Login_Disabled(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)
	seedUser(t, repo, svc.hasher, domain.User{Username: "erin", Email: "erin@x.com", Role: domain.RoleUser, Enabled: false}, "rightpass")

	if _, err := login(svc, "erin", "rightpass"); !errors.Is(err, domain.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	// Credentials are verified first, so a wrong password on a disabled
	// account still reads as invalid credentials.
	if _, err := login(svc, "erin", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	repo := newStubUserRepo()
	throttle := newStubThrottle()
	svc := newTestAuthService(t, repo, throttle)
	seedUser(t, repo, svc.hasher, domain.User{Username: "frank", Email: "frank@x.com", Role: domain.RoleUser, Enabled: true}, "goodpass")

	if _, err := login(svc, "  ", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if repo.finds != 0 {
		t.Fatalf("blank identifier hit the store %d times", repo.finds)
	}
	if throttle.failures[""] != 1 {
		t.Fatalf("expected a failure recorded for the blank identifier, got %v", throttle.failures)
	}

	if _, err := login(svc, "frank", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if throttle.failures["frank"] != 1 {
		t.Fatalf("expected a failure recorded for frank, got %v", throttle.failures)
	}
	if len(throttle.resets) != 0 {
		t.Fatalf("empty input must not reset the throttle, got %v", throttle.resets)
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection refused")
	svc := newTestAuthService(t, repo, nil)

	_, err := login(svc, "carol", "Secret123")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestAuthService_Login_Throttle(t *testing.T) {
	repo := newStubUserRepo()
	throttle := newStubThrottle()
	svc := newTestAuthService(t, repo, throttle)
	seedUser(t, repo, svc.hasher, domain.User{Username: "gina", Email: "gina@x.com", Role: domain.RoleUser, Enabled: true}, "goodpass")

	_, _ = login(svc, "Gina", "bad")
	_, _ = login(svc, "gina", "bad")
	if throttle.failures["gina"] != 2 {
		t.Fatalf("expected 2 failures recorded under normalised key, got %v", throttle.failures)
	}

	if _, err := login(svc, "gina", "goodpass"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if len(throttle.resets) != 1 || throttle.failures["gina"] != 0 {
		t.Fatalf("expected throttle reset after success")
	}

	throttle.blocked = true
	if _, err := login(svc, "gina", "goodpass"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Login_ThrottleFailsOpen(t *testing.T) {
	repo := newStubUserRepo()
	throttle := newStubThrottle()
	throttle.checkErr = errors.New("redis down")
	svc := newTestAuthService(t, repo, throttle)
	seedUser(t, repo, svc.hasher, domain.User{Username: "hank", Email: "hank@x.com", Role: domain.RoleUser, Enabled: true}, "goodpass")

	if _, err := login(svc, "hank", "goodpass"); err != nil {
		t.Fatalf("expected login to proceed when throttle is unavailable, got %v", err)
	}
}

func TestAuthService_Login_RehashesLegacyHash(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(t, repo, nil)

	legacy := auth.NewBcryptHasher(bcrypt.MinCost + 1)
	seedUser(t, repo, legacy, domain.User{Username: "ivy", Email: "ivy@x.com", Role: domain.RoleUser, Enabled: true}, "goodpass")

	if _, err := login(svc, "ivy", "goodpass"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	stored := repo.users["ivy"]
	if svc.hasher.NeedsRehash(stored.PasswordHash) {
		t.Fatalf("expected hash upgraded to current cost")
	}
	if ok, _ := svc.hasher.Verify("goodpass", stored.PasswordHash); !ok {
		t.Fatalf("upgraded hash must still verify")
	}
}
