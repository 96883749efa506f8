package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fitfuel/identity-service/internal/core/domain"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created, err := repo.Create(ctx, &domain.User{Username: "carol", Email: "carol@x.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected ID")
	}

	byName, err := repo.FindByUsername(ctx, "carol")
	if err != nil || byName.ID != created.ID {
		t.Fatalf("FindByUsername: %v %+v", err, byName)
	}
	byEmail, err := repo.FindByEmail(ctx, "carol@x.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("FindByEmail: %v %+v", err, byEmail)
	}

	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// Returned values are copies.
	byName.Role = domain.RoleAdmin
	again, _ := repo.FindByUsername(ctx, "carol")
	if again.Role != domain.RoleUser {
		t.Fatalf("store mutated through returned pointer")
	}
}

func TestUserRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	if _, err := repo.Create(ctx, &domain.User{Username: "carol", Email: "carol@x.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "carol", Email: "other@x.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists on username, got %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "other", Email: "carol@x.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists on email, got %v", err)
	}
}

func TestUserRepository_UpdateCountList(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	admin, _ := repo.Create(ctx, &domain.User{Username: "admin", Email: "admin@x.com", Role: domain.RoleAdmin})
	_, _ = repo.Create(ctx, &domain.User{Username: "u1", Email: "u1@x.com", Role: domain.RoleUser})

	admin.PasswordChangeRequired = true
	if err := repo.Update(ctx, admin); err != nil {
		t.Fatalf("Update: %v", err)
	}
	stored, _ := repo.FindByUsername(ctx, "admin")
	if !stored.PasswordChangeRequired {
		t.Fatalf("update not persisted")
	}

	if err := repo.Update(ctx, &domain.User{ID: "missing"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	total, _ := repo.Count(ctx, "")
	admins, _ := repo.Count(ctx, domain.RoleAdmin)
	if total != 2 || admins != 1 {
		t.Fatalf("unexpected counts: total=%d admins=%d", total, admins)
	}

	users, _ := repo.List(ctx)
	if len(users) != 2 || users[0].Username != "admin" || users[1].Username != "u1" {
		t.Fatalf("expected insertion order, got %+v", users)
	}
}

func TestUserRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{Username: "same", Email: fmt.Sprintf("u%d@x.com", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful create, got %d", ok)
	}
}
