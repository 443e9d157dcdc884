// Package journal records executed trades and computes realized P&L.
// Trades arrive from two paths: filled aggregator orders reconciled during a
// sync, and direct imports from a logged-in broker client.
package journal

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/broker"
	"tradejournal/internal/broker/snaptrade"
	"tradejournal/internal/models"
)

// tradeStore is the part of the trade repository the service uses.
type tradeStore interface {
	Upsert(trade *models.Trade) error
	GetByUserID(userID int64, limit int) ([]*models.Trade, error)
	GetBySymbol(userID int64, symbol string) ([]*models.Trade, error)
	GetSymbols(userID int64) ([]string, error)
}

// Service maintains the trade journal.
type Service struct {
	trades tradeStore
}

// NewService creates a journal service.
func NewService(trades tradeStore) *Service {
	return &Service{trades: trades}
}

// ReconcileOrders upserts filled aggregator orders into the journal and
// returns the number recorded. Unfilled orders and orders without a symbol
// are skipped. Safe to run repeatedly: re-synced orders update in place.
func (s *Service) ReconcileOrders(userID int64, accountID string, orders []snaptrade.Order) (int, error) {
	recorded := 0
	for _, order := range orders {
		if !order.Filled() || order.Symbol == "" || order.ID == "" {
			continue
		}

		trade := &models.Trade{
			UserID:     userID,
			AccountID:  accountID,
			ExternalID: order.ID,
			Symbol:     order.Symbol,
			Side:       strings.ToLower(order.Action),
			Quantity:   decimal.NewFromFloat(order.TotalQuantity),
			Price:      decimal.NewFromFloat(order.ExecutionPrice),
			Fees:       decimal.Zero,
			Currency:   order.Currency,
			Source:     models.SourceSnapTrade,
			ExecutedAt: parseOrderTime(order.ExecutedAt),
		}
		if err := s.trades.Upsert(trade); err != nil {
			return recorded, err
		}
		recorded++
	}
	return recorded, nil
}

// ImportFromSource logs into a direct broker, imports all executed trades,
// and logs out. Returns the number of trades recorded.
func (s *Service) ImportFromSource(ctx context.Context, source broker.TradeSource, userID int64, username, password string) (int, error) {
	if err := source.Login(ctx, username, password); err != nil {
		return 0, err
	}
	defer func() {
		if err := source.Logout(ctx); err != nil {
			log.Printf("[Journal] Logout from %s failed: %v", source.Name(), err)
		}
	}()

	executions, err := source.FetchTrades(ctx)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, exec := range executions {
		trade := &models.Trade{
			UserID:     userID,
			AccountID:  exec.AccountID,
			ExternalID: exec.ExternalID,
			Symbol:     exec.Symbol,
			Side:       exec.Side,
			Quantity:   exec.Quantity,
			Price:      exec.Price,
			Fees:       exec.Fees,
			Currency:   exec.Currency,
			Source:     source.Name(),
			ExecutedAt: exec.ExecutedAt,
		}
		if err := s.trades.Upsert(trade); err != nil {
			return recorded, err
		}
		recorded++
	}

	log.Printf("[Journal] Imported %d trades from %s for user %d", recorded, source.Name(), userID)
	return recorded, nil
}

// SymbolSummary is the realized P&L of one symbol.
type SymbolSummary struct {
	Symbol       string          `json:"symbol"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	OpenQuantity decimal.Decimal `json:"open_quantity"`
	TradeCount   int             `json:"trade_count"`
}

// Summary aggregates realized P&L across all symbols.
type Summary struct {
	TotalRealizedPnL decimal.Decimal `json:"total_realized_pnl"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	Symbols          []SymbolSummary `json:"symbols"`
}

// Trades returns the user's most recent trades.
func (s *Service) Trades(userID int64, limit int) ([]*models.Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.trades.GetByUserID(userID, limit)
}

// Summarize computes realized P&L per symbol. Sells are matched against
// buy lots oldest-first; a sell quantity exceeding the open lots is matched
// as far as the lots go and the remainder ignored (short positions are out
// of scope). Fees reduce realized P&L.
func (s *Service) Summarize(userID int64) (*Summary, error) {
	symbols, err := s.trades.GetSymbols(userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalRealizedPnL: decimal.Zero,
		TotalFees:        decimal.Zero,
		Symbols:          make([]SymbolSummary, 0, len(symbols)),
	}

	for _, symbol := range symbols {
		trades, err := s.trades.GetBySymbol(userID, symbol)
		if err != nil {
			return nil, err
		}

		symbolSummary := summarizeSymbol(symbol, trades)
		summary.TotalRealizedPnL = summary.TotalRealizedPnL.Add(symbolSummary.RealizedPnL)
		for _, trade := range trades {
			summary.TotalFees = summary.TotalFees.Add(trade.Fees)
		}
		summary.Symbols = append(summary.Symbols, symbolSummary)
	}

	return summary, nil
}

// lot is an open buy awaiting matching sells.
type lot struct {
	quantity decimal.Decimal
	price    decimal.Decimal
}

func summarizeSymbol(symbol string, trades []*models.Trade) SymbolSummary {
	realized := decimal.Zero
	var lots []lot

	for _, trade := range trades {
		realized = realized.Sub(trade.Fees)

		switch trade.Side {
		case models.TradeBuy:
			lots = append(lots, lot{quantity: trade.Quantity, price: trade.Price})
		case models.TradeSell:
			remaining := trade.Quantity
			for len(lots) > 0 && remaining.IsPositive() {
				matched := decimal.Min(remaining, lots[0].quantity)
				realized = realized.Add(trade.Price.Sub(lots[0].price).Mul(matched))
				remaining = remaining.Sub(matched)
				lots[0].quantity = lots[0].quantity.Sub(matched)
				if lots[0].quantity.IsZero() {
					lots = lots[1:]
				}
			}
		}
	}

	open := decimal.Zero
	for _, l := range lots {
		open = open.Add(l.quantity)
	}

	return SymbolSummary{
		Symbol:       symbol,
		RealizedPnL:  realized,
		OpenQuantity: open,
		TradeCount:   len(trades),
	}
}

func parseOrderTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000000Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
