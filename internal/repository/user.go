// Package repository provides the data access layer for the trading journal.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tradejournal/internal/database"
	"tradejournal/internal/models"
)

// UserRepository handles user data operations.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns the ID.
func (r *UserRepository) Create(user *models.User) (int64, error) {
	query := `
		INSERT INTO users (email, password_hash, name, default_currency, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE(NULLIF(?, ''), 'USD'), ?, ?)
	`
	now := time.Now()

	result, err := r.db.Exec(query,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.DefaultCurrency,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a user by ID. Returns nil if not found.
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	row := r.db.QueryRow(`
		SELECT id, email, password_hash, name, default_currency, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id)

	return scanUser(row)
}

// GetByEmail retrieves a user by email. Returns nil if not found.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	row := r.db.QueryRow(`
		SELECT id, email, password_hash, name, default_currency, created_at, updated_at
		FROM users
		WHERE email = ?
	`, email)

	return scanUser(row)
}

// UpdatePassword changes a user's password hash.
func (r *UserRepository) UpdatePassword(id int64, passwordHash string) error {
	_, err := r.db.Exec(`
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, passwordHash, id)
	return err
}

// CountAll returns the total number of users.
func (r *UserRepository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.DefaultCurrency,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
