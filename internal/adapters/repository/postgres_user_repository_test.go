package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/google/uuid"
)

func newTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	id := uuid.NewString()
	user, err := domain.NewUser(id, "user_"+id[:8], email)
	if err != nil {
		t.Fatalf("Failed to create domain user: %v", err)
	}
	// The minimum bcrypt cost is enough to exercise the column.
	user.PasswordHash = "$2a$04$placeholderplaceholderplaceholderplaceholderpla"
	return user
}

func TestPostgresUserRepository_Create(t *testing.T) {
	// lib/pq on purpose: duplicate detection must work with both drivers.
	repo := NewPostgresUserRepository(setupTestDB(t, "postgres"))
	ctx := context.Background()

	t.Run("Should create a user successfully", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, fmt.Sprintf("test_%s@example.com", uuid.NewString()))

		if err := repo.Create(ctx, user); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}

		savedUser, err := repo.GetByEmail(ctx, user.Email)
		if err != nil {
			t.Fatalf("Could not retrieve saved user: %v", err)
		}

		if savedUser.ID != user.ID {
			t.Errorf("Expected ID %s, got %s", user.ID, savedUser.ID)
		}
		if savedUser.Username != user.Username {
			t.Errorf("Expected username %s, got %s", user.Username, savedUser.Username)
		}
		if savedUser.CreatedAt.IsZero() || savedUser.UpdatedAt.IsZero() {
			t.Error("Timestamps should not be zero")
		}
	})

	t.Run("Should fail on duplicate email", func(t *testing.T) {
		t.Parallel()

		email := fmt.Sprintf("duplicate_%s@example.com", uuid.NewString())
		user1 := newTestUser(t, email)
		_ = repo.Create(ctx, user1)

		user2 := newTestUser(t, email)

		if err := repo.Create(ctx, user2); err != domain.ErrUserAlreadyExists {
			t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
		}
	})
}

func TestPostgresUserRepository_DuplicateWithPgx(t *testing.T) {
	repo := NewPostgresUserRepository(setupTestDB(t, "pgx"))
	ctx := context.Background()

	user := newTestUser(t, fmt.Sprintf("pgx_%s@example.com", uuid.NewString()))
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	dup := newTestUser(t, fmt.Sprintf("pgx_other_%s@example.com", uuid.NewString()))
	dup.Username = user.Username

	if err := repo.Create(ctx, dup); err != domain.ErrUserAlreadyExists {
		t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestPostgresUserRepository_GetByID(t *testing.T) {
	repo := NewPostgresUserRepository(setupTestDB(t, "pgx"))
	ctx := context.Background()

	t.Run("Should retrieve existing user by ID", func(t *testing.T) {
		user := newTestUser(t, fmt.Sprintf("id_test_%s@example.com", uuid.NewString()))
		_ = repo.Create(ctx, user)

		foundUser, err := repo.GetByID(ctx, user.ID)

		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if foundUser.Email != user.Email {
			t.Errorf("Expected email %s, got %s", user.Email, foundUser.Email)
		}
	})

	t.Run("Should return ErrUserNotFound for non-existent ID", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())

		if err != domain.ErrUserNotFound {
			t.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	repo := NewPostgresUserRepository(setupTestDB(t, "pgx"))
	ctx := context.Background()

	t.Run("Should retrieve existing user by Email", func(t *testing.T) {
		email := fmt.Sprintf("email_test_%s@example.com", uuid.NewString())
		user := newTestUser(t, email)
		_ = repo.Create(ctx, user)

		foundUser, err := repo.GetByEmail(ctx, email)

		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if foundUser.ID != user.ID {
			t.Errorf("Expected ID %s, got %s", user.ID, foundUser.ID)
		}
	})

	t.Run("Should return ErrUserNotFound for non-existent email", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nonexistent@ghost.com")

		if err != domain.ErrUserNotFound {
			t.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})
}
