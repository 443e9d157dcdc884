// Package broker provides shared broker integration types and credential
// encryption. Concrete integrations live in subpackages: snaptrade (the
// brokerage aggregator) and webull (direct-login import).
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one filled order reported by a direct-login trade source.
type Execution struct {
	ExternalID string
	AccountID  string
	Symbol     string
	Side       string // "buy", "sell"
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fees       decimal.Decimal
	Currency   string
	ExecutedAt time.Time
}

// TradeSource is a broker that authenticates with direct credentials and
// exposes executed trades for journal import. Structurally parallel to the
// aggregator flow, minus the OAuth redirect.
type TradeSource interface {
	// Name returns the source identifier recorded on imported trades.
	Name() string

	// Login authenticates with the broker. Must be called before FetchTrades.
	Login(ctx context.Context, username, password string) error

	// FetchTrades returns all executed trades for the authenticated user.
	FetchTrades(ctx context.Context) ([]Execution, error)

	// Logout terminates the broker session.
	Logout(ctx context.Context) error
}
