package repository

import (
	"database/sql"
	"time"

	"tradejournal/internal/database"
	"tradejournal/internal/models"
)

// SyncHistoryRepository handles sync history database operations.
type SyncHistoryRepository struct {
	db *database.DB
}

// NewSyncHistoryRepository creates a new SyncHistoryRepository.
func NewSyncHistoryRepository(db *database.DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{db: db}
}

// Start creates a new sync history entry with status "started" and returns its ID.
func (r *SyncHistoryRepository) Start(userID int64, syncType string) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO sync_history (user_id, sync_type, status, started_at)
		VALUES (?, ?, 'started', ?)
	`, userID, syncType, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Complete marks a sync as successful.
func (r *SyncHistoryRepository) Complete(id int64, accountsSynced, ordersSynced int) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE sync_history
		SET status = 'success', accounts_synced = ?, orders_synced = ?, completed_at = ?,
		    duration_ms = (julianday(?) - julianday(started_at)) * 86400000
		WHERE id = ?
	`, accountsSynced, ordersSynced, now, now, id)
	return err
}

// CompletePartial marks a sync that finished with isolated refresh failures.
func (r *SyncHistoryRepository) CompletePartial(id int64, accountsSynced, ordersSynced int, errorMsg string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE sync_history
		SET status = 'partial', accounts_synced = ?, orders_synced = ?, error_message = ?, completed_at = ?,
		    duration_ms = (julianday(?) - julianday(started_at)) * 86400000
		WHERE id = ?
	`, accountsSynced, ordersSynced, errorMsg, now, now, id)
	return err
}

// Fail marks a sync as failed with an error message.
func (r *SyncHistoryRepository) Fail(id int64, errorMsg string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE sync_history
		SET status = 'error', error_message = ?, completed_at = ?,
		    duration_ms = (julianday(?) - julianday(started_at)) * 86400000
		WHERE id = ?
	`, errorMsg, now, now, id)
	return err
}

// GetByUserID retrieves sync history for a user, most recent first.
func (r *SyncHistoryRepository) GetByUserID(userID int64, limit int) ([]*models.SyncHistory, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, sync_type, status, accounts_synced, orders_synced, error_message, started_at, completed_at, duration_ms
		FROM sync_history
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHistories(rows)
}

// GetLatestByUserID retrieves the most recent sync history for a user.
func (r *SyncHistoryRepository) GetLatestByUserID(userID int64) (*models.SyncHistory, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, sync_type, status, accounts_synced, orders_synced, error_message, started_at, completed_at, duration_ms
		FROM sync_history
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, userID)

	return scanHistory(row)
}

// DeleteOlderThan removes sync history entries older than the given time.
func (r *SyncHistoryRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sync_history WHERE started_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanHistory(row *sql.Row) (*models.SyncHistory, error) {
	history := &models.SyncHistory{}
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := row.Scan(
		&history.ID,
		&history.UserID,
		&history.SyncType,
		&history.Status,
		&history.AccountsSynced,
		&history.OrdersSynced,
		&history.ErrorMessage,
		&history.StartedAt,
		&completedAt,
		&durationMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		history.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		history.DurationMs = durationMs.Int64
	}

	return history, nil
}

func scanHistories(rows *sql.Rows) ([]*models.SyncHistory, error) {
	histories := make([]*models.SyncHistory, 0)

	for rows.Next() {
		history := &models.SyncHistory{}
		var completedAt sql.NullTime
		var durationMs sql.NullInt64

		err := rows.Scan(
			&history.ID,
			&history.UserID,
			&history.SyncType,
			&history.Status,
			&history.AccountsSynced,
			&history.OrdersSynced,
			&history.ErrorMessage,
			&history.StartedAt,
			&completedAt,
			&durationMs,
		)
		if err != nil {
			return nil, err
		}

		if completedAt.Valid {
			history.CompletedAt = &completedAt.Time
		}
		if durationMs.Valid {
			history.DurationMs = durationMs.Int64
		}

		histories = append(histories, history)
	}

	return histories, rows.Err()
}
