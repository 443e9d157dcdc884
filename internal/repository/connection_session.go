package repository

import (
	"database/sql"
	"time"

	"tradejournal/internal/database"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

// ConnectionSessionRepository persists in-flight broker connection attempts.
// The aggregator callback arrives on a separate request, so sessions must be
// retrievable by ID across requests.
type ConnectionSessionRepository struct {
	db *database.DB
}

// NewConnectionSessionRepository creates a new ConnectionSessionRepository.
func NewConnectionSessionRepository(db *database.DB) *ConnectionSessionRepository {
	return &ConnectionSessionRepository{db: db}
}

// Create inserts a new pending connection session.
func (r *ConnectionSessionRepository) Create(sess *models.ConnectionSession) error {
	_, err := r.db.Exec(`
		INSERT INTO connection_sessions (id, user_id, broker_id, redirect_uri, authorization_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.BrokerID, sess.RedirectURI, sess.AuthorizationID, models.SessionPending, time.Now())
	return err
}

// GetByID retrieves a connection session by ID. Returns nil if not found.
func (r *ConnectionSessionRepository) GetByID(id string) (*models.ConnectionSession, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, broker_id, redirect_uri, authorization_id, status, error_message, created_at, resolved_at
		FROM connection_sessions
		WHERE id = ?
	`, id)

	return scanConnectionSession(row)
}

// MarkCompleted transitions a session from pending to completed. The WHERE
// clause guards single resolution: a session that is no longer pending is
// not updated and a session error is returned.
func (r *ConnectionSessionRepository) MarkCompleted(id, authorizationID string) error {
	result, err := r.db.Exec(`
		UPDATE connection_sessions
		SET status = ?, authorization_id = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, models.SessionCompleted, authorizationID, time.Now(), id, models.SessionPending)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.SessionState("invalid or expired session")
	}
	return nil
}

// MarkError transitions a pending session to the error state.
func (r *ConnectionSessionRepository) MarkError(id, message string) error {
	_, err := r.db.Exec(`
		UPDATE connection_sessions
		SET status = ?, error_message = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, models.SessionError, message, time.Now(), id, models.SessionPending)
	return err
}

// GetLatestByUserID retrieves the most recent session for a user.
func (r *ConnectionSessionRepository) GetLatestByUserID(userID int64) (*models.ConnectionSession, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, broker_id, redirect_uri, authorization_id, status, error_message, created_at, resolved_at
		FROM connection_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)

	return scanConnectionSession(row)
}

// DeleteOlderThan removes stale sessions and returns the count.
func (r *ConnectionSessionRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM connection_sessions WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanConnectionSession(row *sql.Row) (*models.ConnectionSession, error) {
	sess := &models.ConnectionSession{}
	var resolvedAt sql.NullTime

	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.BrokerID,
		&sess.RedirectURI,
		&sess.AuthorizationID,
		&sess.Status,
		&sess.ErrorMessage,
		&sess.CreatedAt,
		&resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		sess.ResolvedAt = &resolvedAt.Time
	}

	return sess, nil
}
