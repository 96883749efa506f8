package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/fitfuel/identity-service/internal/infrastructure/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                   "0",
		"JWT_SECRET":             "app-test-signing-key",
		"STORE_DRIVER":           "memory",
		"LOGIN_THROTTLE_ENABLED": "false",
		"BCRYPT_COST":            "4",
		"ADMIN_PASSWORD":         "Admin@123",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestNew_MemoryStoreBootstrapsAdmin(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	admin, err := a.store.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("expected bootstrapped admin: %v", err)
	}
	if admin.Role != "ROLE_ADMIN" || !admin.PasswordChangeRequired {
		t.Fatalf("unexpected admin: %+v", admin)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("app did not stop")
	}
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	if err := Migrate(context.Background(), memoryConfig(t), zerolog.Nop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}

func TestWithRetry_SucceedsAfterFailure(t *testing.T) {
	calls := 0
	got, err := withRetry(context.Background(), zerolog.Nop(), "flaky", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q %v", got, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, zerolog.Nop(), "down", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}
