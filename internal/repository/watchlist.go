package repository

import (
	"strings"

	"tradejournal/internal/database"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

// WatchlistRepository handles watchlist database operations.
type WatchlistRepository struct {
	db *database.DB
}

// NewWatchlistRepository creates a new WatchlistRepository.
func NewWatchlistRepository(db *database.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Add puts a symbol on a user's watchlist. Adding a symbol that is already
// present is a conflict.
func (r *WatchlistRepository) Add(userID int64, symbol string) (int64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, apperrors.Validation("symbol is required")
	}

	result, err := r.db.Exec(`
		INSERT INTO watchlists (user_id, symbol) VALUES (?, ?)
	`, userID, symbol)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, apperrors.Conflict("symbol already on watchlist")
		}
		return 0, err
	}
	return result.LastInsertId()
}

// Remove takes a symbol off a user's watchlist.
func (r *WatchlistRepository) Remove(userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	result, err := r.db.Exec(`
		DELETE FROM watchlists WHERE user_id = ? AND symbol = ?
	`, userID, symbol)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFound("watchlist symbol")
	}
	return nil
}

// GetByUserID retrieves a user's watchlist in the order symbols were added.
func (r *WatchlistRepository) GetByUserID(userID int64) ([]*models.WatchlistItem, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, added_at
		FROM watchlists
		WHERE user_id = ?
		ORDER BY added_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.WatchlistItem, 0)
	for rows.Next() {
		item := &models.WatchlistItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Symbol, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
