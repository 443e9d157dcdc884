// Package models contains the domain models for the trading journal.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered user.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"` // Never expose in JSON
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Session represents a user session for authentication.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// BrokerCredential is the brokerage-aggregator identity for a local user.
// The secret is stored encrypted and is never exposed to handlers or JSON.
// One credential per user; replaced only after an explicit disconnect.
type BrokerCredential struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ExternalUserID string    `json:"external_user_id"`
	ExternalSecret string    `json:"-"` // Decrypted in memory only
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Connection session statuses.
const (
	SessionPending   = "pending"
	SessionCompleted = "completed"
	SessionError     = "error"
)

// ConnectionSession tracks one in-flight broker connection attempt.
// The aggregator callback arrives on a separate request, so sessions are
// persisted and looked up by ID during the callback phase.
type ConnectionSession struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"user_id"`
	BrokerID        string     `json:"broker_id,omitempty"`
	RedirectURI     string     `json:"redirect_uri"`
	AuthorizationID string     `json:"authorization_id,omitempty"`
	Status          string     `json:"status"` // "pending", "completed", "error"
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// IsPending returns true if the session can still be resolved.
func (s *ConnectionSession) IsPending() bool {
	return s.Status == SessionPending
}

// Trade sides.
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// Trade sources.
const (
	SourceSnapTrade = "snaptrade"
	SourceWebull    = "webull"
)

// Trade is a journal entry for one executed order.
// Quantity, price, and fees use decimal arithmetic so P&L aggregation does
// not accumulate float error.
type Trade struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	AccountID  string          `json:"account_id,omitempty"` // External account identifier
	ExternalID string          `json:"external_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"` // "buy", "sell"
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fees       decimal.Decimal `json:"fees"`
	Currency   string          `json:"currency"`
	Source     string          `json:"source"` // "snaptrade", "webull"
	ExecutedAt time.Time       `json:"executed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Notional returns quantity * price.
func (t *Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// WatchlistItem is one symbol on a user's watchlist.
type WatchlistItem struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// SyncHistory records one sync run for auditing.
type SyncHistory struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	SyncType       string     `json:"sync_type"` // "full", "positions", "balances", "orders"
	Status         string     `json:"status"`    // "started", "success", "partial", "error"
	AccountsSynced int        `json:"accounts_synced"`
	OrdersSynced   int        `json:"orders_synced"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMs     int64      `json:"duration_ms,omitempty"`
}
