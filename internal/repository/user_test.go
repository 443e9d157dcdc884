package repository

import (
	"path/filepath"
	"testing"

	"tradejournal/internal/database"
	"tradejournal/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestUser creates a test user and returns its ID.
func createTestUser(t *testing.T, db *database.DB) int64 {
	t.Helper()
	repo := NewUserRepository(db)
	id, err := repo.Create(&models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return id
}

func TestUserRepository_Create_ValidUser_ReturnsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}

	id, err := repo.Create(user)
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	if id <= 0 {
		t.Errorf("Create() id = %d, want > 0", id)
	}
}

func TestUserRepository_Create_DuplicateEmail_ReturnsError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}

	_, err := repo.Create(user)
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// Try to create another user with same email
	user2 := &models.User{
		Email:        "test@example.com",
		PasswordHash: "differenthash",
		Name:         "Another User",
	}

	_, err = repo.Create(user2)
	if err == nil {
		t.Error("Create() with duplicate email should return error")
	}
}

func TestUserRepository_Create_EmptyCurrency_DefaultsToUSD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	id, err := repo.Create(&models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want %q", found.DefaultCurrency, "USD")
	}
}

func TestUserRepository_GetByID_NonExistent_ReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	found, err := repo.GetByID(999)
	if err != nil {
		t.Fatalf("GetByID() error = %v, want nil", err)
	}
	if found != nil {
		t.Errorf("GetByID() for non-existent id should return nil, got %v", found)
	}
}

func TestUserRepository_GetByEmail_ExistingUser_ReturnsUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}
	if _, err := repo.Create(user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := repo.GetByEmail("test@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v, want nil", err)
	}
	if found == nil {
		t.Fatal("GetByEmail() returned nil, want user")
	}
	if found.Name != user.Name {
		t.Errorf("GetByEmail() name = %q, want %q", found.Name, user.Name)
	}
}

func TestUserRepository_CountAll_ReflectsCreatedUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	count, err := repo.CountAll()
	if err != nil {
		t.Fatalf("CountAll() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountAll() on empty database = %d, want 0", count)
	}

	createTestUser(t, db)

	count, err = repo.CountAll()
	if err != nil {
		t.Fatalf("CountAll() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountAll() = %d, want 1", count)
	}
}
