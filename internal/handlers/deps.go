package handlers

import (
	"tradejournal/internal/auth"
	"tradejournal/internal/broker/snaptrade"
	"tradejournal/internal/connect"
	"tradejournal/internal/journal"
	"tradejournal/internal/marketdata"
	"tradejournal/internal/repository"
	"tradejournal/internal/sync"
)

// Dependencies holds all handler dependencies.
// This reduces constructor parameter lists and simplifies dependency injection.
type Dependencies struct {
	// Repositories
	UserRepo        *repository.UserRepository
	CredentialRepo  *repository.CredentialRepository
	TradeRepo       *repository.TradeRepository
	WatchlistRepo   *repository.WatchlistRepository
	SyncHistoryRepo *repository.SyncHistoryRepository

	// Services
	SessionManager *auth.SessionManager
	Aggregator     *snaptrade.Client
	FlowController *connect.Controller
	SyncStore      *sync.Store
	Journal        *journal.Service
	Quotes         *marketdata.QuoteClient

	// SessionMaxAge is the session cookie lifetime in seconds.
	SessionMaxAge int

	// WebullImport builds a fresh direct-login import for each request.
	WebullImport WebullImportFunc
}

// NewDependencies creates an empty Dependencies container.
// Use the builder pattern to set required dependencies.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// WithUserRepo sets the user repository.
func (d *Dependencies) WithUserRepo(r *repository.UserRepository) *Dependencies {
	d.UserRepo = r
	return d
}

// WithCredentialRepo sets the broker credential repository.
func (d *Dependencies) WithCredentialRepo(r *repository.CredentialRepository) *Dependencies {
	d.CredentialRepo = r
	return d
}

// WithTradeRepo sets the trade repository.
func (d *Dependencies) WithTradeRepo(r *repository.TradeRepository) *Dependencies {
	d.TradeRepo = r
	return d
}

// WithWatchlistRepo sets the watchlist repository.
func (d *Dependencies) WithWatchlistRepo(r *repository.WatchlistRepository) *Dependencies {
	d.WatchlistRepo = r
	return d
}

// WithSyncHistoryRepo sets the sync history repository.
func (d *Dependencies) WithSyncHistoryRepo(r *repository.SyncHistoryRepository) *Dependencies {
	d.SyncHistoryRepo = r
	return d
}

// WithSessionManager sets the session manager.
func (d *Dependencies) WithSessionManager(sm *auth.SessionManager) *Dependencies {
	d.SessionManager = sm
	return d
}

// WithAggregator sets the aggregator API client.
func (d *Dependencies) WithAggregator(c *snaptrade.Client) *Dependencies {
	d.Aggregator = c
	return d
}

// WithFlowController sets the broker connection flow controller.
func (d *Dependencies) WithFlowController(c *connect.Controller) *Dependencies {
	d.FlowController = c
	return d
}

// WithSyncStore sets the data sync store.
func (d *Dependencies) WithSyncStore(s *sync.Store) *Dependencies {
	d.SyncStore = s
	return d
}

// WithJournal sets the journal service.
func (d *Dependencies) WithJournal(s *journal.Service) *Dependencies {
	d.Journal = s
	return d
}

// WithQuotes sets the quote client.
func (d *Dependencies) WithQuotes(q *marketdata.QuoteClient) *Dependencies {
	d.Quotes = q
	return d
}

// WithSessionMaxAge sets the session cookie lifetime in seconds.
func (d *Dependencies) WithSessionMaxAge(seconds int) *Dependencies {
	d.SessionMaxAge = seconds
	return d
}

// WithWebullImport sets the direct-login import factory.
func (d *Dependencies) WithWebullImport(f WebullImportFunc) *Dependencies {
	d.WebullImport = f
	return d
}
