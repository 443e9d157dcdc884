package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/database"
	"tradejournal/internal/models"
)

// TradeRepository handles journal trade database operations. Decimal fields
// are stored as TEXT to keep exact values across round trips.
type TradeRepository struct {
	db *database.DB
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(db *database.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Upsert inserts a trade or updates it in place when the same external order
// was already imported (keyed by user, source, and external id).
func (r *TradeRepository) Upsert(trade *models.Trade) error {
	_, err := r.db.Exec(`
		INSERT INTO trades (user_id, account_id, external_id, symbol, side, quantity, price, fees, currency, source, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, source, external_id) DO UPDATE SET
			account_id = excluded.account_id,
			symbol = excluded.symbol,
			side = excluded.side,
			quantity = excluded.quantity,
			price = excluded.price,
			fees = excluded.fees,
			currency = excluded.currency,
			executed_at = excluded.executed_at
	`,
		trade.UserID,
		trade.AccountID,
		trade.ExternalID,
		trade.Symbol,
		trade.Side,
		trade.Quantity.String(),
		trade.Price.String(),
		trade.Fees.String(),
		trade.Currency,
		trade.Source,
		trade.ExecutedAt,
		time.Now(),
	)
	return err
}

// GetByUserID retrieves trades for a user, most recent execution first.
func (r *TradeRepository) GetByUserID(userID int64, limit int) ([]*models.Trade, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, account_id, external_id, symbol, side, quantity, price, fees, currency, source, executed_at, created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY executed_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySymbol retrieves all trades for a user and symbol in execution order.
// Ascending order matters: realized P&L matching consumes lots oldest-first.
func (r *TradeRepository) GetBySymbol(userID int64, symbol string) ([]*models.Trade, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, account_id, external_id, symbol, side, quantity, price, fees, currency, source, executed_at, created_at
		FROM trades
		WHERE user_id = ? AND symbol = ?
		ORDER BY executed_at ASC, id ASC
	`, userID, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetSymbols returns the distinct symbols a user has traded.
func (r *TradeRepository) GetSymbols(userID int64) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT symbol FROM trades WHERE user_id = ? ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// CountByUserID returns the number of trades for a user.
func (r *TradeRepository) CountByUserID(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// DeleteBySource removes all trades for a user from one import source.
func (r *TradeRepository) DeleteBySource(userID int64, source string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE user_id = ? AND source = ?`, userID, source)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanTrades(rows *sql.Rows) ([]*models.Trade, error) {
	trades := make([]*models.Trade, 0)

	for rows.Next() {
		trade := &models.Trade{}
		var quantity, price, fees string

		err := rows.Scan(
			&trade.ID,
			&trade.UserID,
			&trade.AccountID,
			&trade.ExternalID,
			&trade.Symbol,
			&trade.Side,
			&quantity,
			&price,
			&fees,
			&trade.Currency,
			&trade.Source,
			&trade.ExecutedAt,
			&trade.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if trade.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing quantity %q: %w", quantity, err)
		}
		if trade.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price %q: %w", price, err)
		}
		if trade.Fees, err = decimal.NewFromString(fees); err != nil {
			return nil, fmt.Errorf("parsing fees %q: %w", fees, err)
		}

		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
