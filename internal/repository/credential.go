package repository

import (
	"database/sql"
	"time"

	"tradejournal/internal/broker"
	"tradejournal/internal/database"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

// CredentialRepository persists broker-aggregator credentials. Secrets are
// encrypted with a user-derived key before they touch the database.
type CredentialRepository struct {
	db        *database.DB
	encryptor *broker.Encryptor
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *database.DB, encryptor *broker.Encryptor) *CredentialRepository {
	return &CredentialRepository{db: db, encryptor: encryptor}
}

// Create stores a credential for a user. It fails with a conflict error if a
// credential already exists: an existing secret is only replaced after an
// explicit Delete (disconnect).
func (r *CredentialRepository) Create(cred *models.BrokerCredential) (int64, error) {
	existing, err := r.GetByUserID(cred.UserID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, apperrors.Conflict("broker credential already exists for user")
	}

	ciphertext, nonce, err := r.encryptor.Encrypt(cred.ExternalSecret, cred.UserID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	result, err := r.db.Exec(`
		INSERT INTO broker_credentials (user_id, external_user_id, secret_ciphertext, secret_nonce, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cred.UserID, cred.ExternalUserID, ciphertext, nonce, now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByUserID retrieves and decrypts the credential for a user.
// Returns nil if the user has no credential.
func (r *CredentialRepository) GetByUserID(userID int64) (*models.BrokerCredential, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, external_user_id, secret_ciphertext, secret_nonce, created_at, updated_at
		FROM broker_credentials
		WHERE user_id = ?
	`, userID)

	cred := &models.BrokerCredential{}
	var ciphertext, nonce []byte
	err := row.Scan(
		&cred.ID,
		&cred.UserID,
		&cred.ExternalUserID,
		&ciphertext,
		&nonce,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	secret, err := r.encryptor.Decrypt(ciphertext, nonce, cred.UserID)
	if err != nil {
		return nil, err
	}
	cred.ExternalSecret = secret

	return cred, nil
}

// Delete removes the credential for a user (broker disconnect).
func (r *CredentialRepository) Delete(userID int64) error {
	result, err := r.db.Exec(`DELETE FROM broker_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFound("broker credential")
	}
	return nil
}
