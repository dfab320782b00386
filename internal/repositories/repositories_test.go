package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(context.Background(), shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newPasswordUser(email string) *models.User {
	return models.NewUser(0, email, models.ProviderPassword, "$2a$10$hash")
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newPasswordUser("test@example.com")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Create rejects invalid users", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		err := repo.Create(models.NewUser(0, "nope", models.ProviderPassword, "hash"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Create rejects duplicate emails", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.Create(newPasswordUser("dup@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		err := repo.Create(models.NewUser(0, "DUP@example.com", models.ProviderGoogle, ""))
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newPasswordUser("test@example.com")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
		if retrieved.Email() != user.Email() {
			t.Errorf("expected email %s, got %s", user.Email(), retrieved.Email())
		}
		if retrieved.PasswordHash() != user.PasswordHash() {
			t.Errorf("expected hash %s, got %s", user.PasswordHash(), retrieved.PasswordHash())
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newPasswordUser("test@example.com")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.GetByEmail("  Test@Example.com ")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}

		if _, err := repo.GetByEmail("other@example.com"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := models.NewUser(0, "test@example.com", models.ProviderGoogle, "")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.SetPasswordHash("$2a$10$new")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Provider() != models.ProviderPassword || retrieved.PasswordHash() != "$2a$10$new" {
			t.Errorf("update not persisted: provider=%s hash=%s", retrieved.Provider(), retrieved.PasswordHash())
		}

		ghost := newPasswordUser("ghost@example.com")
		ghost.SetID("missing")
		if err := repo.Update(ghost); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newPasswordUser("test@example.com")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); err == nil {
			t.Error("expected error when getting deleted user")
		}

		if err := repo.Delete(user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}

		if err := repo.Create(newPasswordUser("test@example.com")); err != nil {
			t.Errorf("expected address to be reusable after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))

		users := []*models.User{
			newPasswordUser("user1@example.com"),
			models.NewUser(0, "user2@example.com", models.ProviderGoogle, ""),
			models.NewUser(0, "user3@example.com", models.ProviderFacebook, ""),
		}

		for _, user := range users {
			if err := repo.Create(user); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		retrieved, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(retrieved) != 3 {
			t.Errorf("expected 3 users, got %d", len(retrieved))
		}
		for i, u := range retrieved {
			if u.Sequence() != i+1 {
				t.Errorf("expected users ordered by sequence, got %d at %d", u.Sequence(), i)
			}
		}

		filtered, err := repo.List(map[string]any{"email": "user2@example.com"})
		if err != nil {
			t.Fatalf("failed to list filtered users: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Email() != "user2@example.com" {
			t.Errorf("unexpected filtered users %v", filtered)
		}

		byProvider, err := repo.List(map[string]any{"provider": models.ProviderFacebook})
		if err != nil {
			t.Fatalf("failed to list by provider: %v", err)
		}
		if len(byProvider) != 1 || byProvider[0].Email() != "user3@example.com" {
			t.Errorf("unexpected provider users %v", byProvider)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	seq1, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}
	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}
	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	if _, err := NextSequence(db, "stones"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}
