// Package sync pulls brokerage data through the aggregator into an
// in-memory snapshot per user. Collections are replaced wholesale on each
// refresh; a failed per-account refresh keeps that account's prior data and
// never aborts sibling refreshes.
package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	gosync "sync"
	"time"

	"tradejournal/internal/broker/snaptrade"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

// aggregatorClient is the part of the aggregator API the store uses.
type aggregatorClient interface {
	ListConnections(ctx context.Context, userID, userSecret string) ([]snaptrade.Connection, error)
	GetAccounts(ctx context.Context, userID, userSecret string) ([]snaptrade.Account, error)
	GetPositions(ctx context.Context, userID, userSecret, accountID string) ([]snaptrade.Position, error)
	GetBalances(ctx context.Context, userID, userSecret, accountID string) ([]snaptrade.Balance, error)
	GetOrders(ctx context.Context, userID, userSecret, accountID string) ([]snaptrade.Order, error)
}

// credentialStore looks up aggregator credentials per local user.
type credentialStore interface {
	GetByUserID(userID int64) (*models.BrokerCredential, error)
}

// historyStore records sync runs for auditing.
type historyStore interface {
	Start(userID int64, syncType string) (int64, error)
	Complete(id int64, accountsSynced, ordersSynced int) error
	CompletePartial(id int64, accountsSynced, ordersSynced int, errorMsg string) error
	Fail(id int64, errorMsg string) error
}

// ReconcileFunc receives each account's freshly fetched orders, typically to
// upsert filled orders into the journal. It returns the number of orders
// recorded.
type ReconcileFunc func(userID int64, accountID string, orders []snaptrade.Order) (int, error)

// Snapshot is the current synced state for one user. Position, balance, and
// order collections are keyed by account ID.
type Snapshot struct {
	Connections []snaptrade.Connection          `json:"connections"`
	Accounts    []snaptrade.Account             `json:"accounts"`
	Positions   map[string][]snaptrade.Position `json:"positions"`
	Balances    map[string][]snaptrade.Balance  `json:"balances"`
	Orders      map[string][]snaptrade.Order    `json:"orders"`
	LastSyncAt  time.Time                       `json:"last_sync_at"`
	Error       string                          `json:"error,omitempty"`
}

// Store holds synced brokerage data for all users and coordinates refreshes.
// At most one sync runs per user at a time.
type Store struct {
	client      aggregatorClient
	credentials credentialStore
	history     historyStore
	reconcile   ReconcileFunc

	mu      gosync.Mutex
	state   map[int64]*Snapshot
	syncing map[int64]bool
}

// NewStore creates a sync store. reconcile may be nil.
func NewStore(client aggregatorClient, credentials credentialStore, history historyStore, reconcile ReconcileFunc) *Store {
	return &Store{
		client:      client,
		credentials: credentials,
		history:     history,
		reconcile:   reconcile,
		state:       make(map[int64]*Snapshot),
		syncing:     make(map[int64]bool),
	}
}

// SyncAll refreshes connections, accounts, and all per-account collections
// for one user. Per-account failures are isolated: successful collections
// are kept, failed ones retain their previous data, and the run finishes
// with a partial sync error naming the failures.
func (s *Store) SyncAll(ctx context.Context, userID int64) error {
	if err := s.acquire(userID); err != nil {
		return err
	}
	defer s.release(userID)

	cred, err := s.credentials.GetByUserID(userID)
	if err != nil {
		return err
	}
	if cred == nil {
		return apperrors.SessionState("user is not registered with the aggregator")
	}

	historyID, err := s.history.Start(userID, "full")
	if err != nil {
		return err
	}

	connections, err := s.client.ListConnections(ctx, cred.ExternalUserID, cred.ExternalSecret)
	if err != nil {
		s.history.Fail(historyID, err.Error())
		return err
	}

	accounts, err := s.client.GetAccounts(ctx, cred.ExternalUserID, cred.ExternalSecret)
	if err != nil {
		s.history.Fail(historyID, err.Error())
		return err
	}

	next := s.nextSnapshot(userID)
	next.Connections = connections
	next.Accounts = accounts

	var failures []string
	ordersSynced := 0
	for _, account := range accounts {
		failures = append(failures, s.refreshCollections(ctx, userID, cred, account.ID, next, &ordersSynced)...)
	}

	next.LastSyncAt = time.Now()
	next.Error = strings.Join(failures, "; ")

	s.mu.Lock()
	s.state[userID] = next
	s.mu.Unlock()

	if len(failures) > 0 {
		message := next.Error
		s.history.CompletePartial(historyID, len(accounts), ordersSynced, message)
		log.Printf("[Sync] Partial sync for user %d: %s", userID, message)
		return apperrors.PartialSync(message, nil)
	}

	s.history.Complete(historyID, len(accounts), ordersSynced)
	log.Printf("[Sync] Synced %d accounts for user %d", len(accounts), userID)
	return nil
}

// RefreshAccount refreshes the collections of a single account, with the
// same isolation rules as SyncAll.
func (s *Store) RefreshAccount(ctx context.Context, userID int64, accountID string) error {
	if err := s.acquire(userID); err != nil {
		return err
	}
	defer s.release(userID)

	cred, err := s.credentials.GetByUserID(userID)
	if err != nil {
		return err
	}
	if cred == nil {
		return apperrors.SessionState("user is not registered with the aggregator")
	}

	next := s.nextSnapshot(userID)
	ordersSynced := 0
	failures := s.refreshCollections(ctx, userID, cred, accountID, next, &ordersSynced)

	next.LastSyncAt = time.Now()
	next.Error = strings.Join(failures, "; ")

	s.mu.Lock()
	s.state[userID] = next
	s.mu.Unlock()

	if len(failures) > 0 {
		return apperrors.PartialSync(next.Error, nil)
	}
	return nil
}

// refreshCollections replaces one account's positions, balances, and orders
// in next. A failed fetch leaves the prior collection in place and is
// reported as a failure message.
func (s *Store) refreshCollections(ctx context.Context, userID int64, cred *models.BrokerCredential, accountID string, next *Snapshot, ordersSynced *int) []string {
	var failures []string

	positions, err := s.client.GetPositions(ctx, cred.ExternalUserID, cred.ExternalSecret, accountID)
	if err != nil {
		failures = append(failures, fmt.Sprintf("positions %s: %v", accountID, err))
	} else {
		next.Positions[accountID] = positions
	}

	balances, err := s.client.GetBalances(ctx, cred.ExternalUserID, cred.ExternalSecret, accountID)
	if err != nil {
		failures = append(failures, fmt.Sprintf("balances %s: %v", accountID, err))
	} else {
		next.Balances[accountID] = balances
	}

	orders, err := s.client.GetOrders(ctx, cred.ExternalUserID, cred.ExternalSecret, accountID)
	if err != nil {
		failures = append(failures, fmt.Sprintf("orders %s: %v", accountID, err))
	} else {
		next.Orders[accountID] = orders
		if s.reconcile != nil {
			recorded, err := s.reconcile(userID, accountID, orders)
			if err != nil {
				failures = append(failures, fmt.Sprintf("journal %s: %v", accountID, err))
			} else {
				*ordersSynced += recorded
			}
		}
	}

	return failures
}

// nextSnapshot copies the user's current snapshot so failed refreshes keep
// their prior collections while successful ones are replaced.
func (s *Store) nextSnapshot(userID int64) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &Snapshot{
		Positions: make(map[string][]snaptrade.Position),
		Balances:  make(map[string][]snaptrade.Balance),
		Orders:    make(map[string][]snaptrade.Order),
	}
	prior, ok := s.state[userID]
	if !ok {
		return next
	}

	next.Connections = prior.Connections
	next.Accounts = prior.Accounts
	for accountID, positions := range prior.Positions {
		next.Positions[accountID] = positions
	}
	for accountID, balances := range prior.Balances {
		next.Balances[accountID] = balances
	}
	for accountID, orders := range prior.Orders {
		next.Orders[accountID] = orders
	}
	return next
}

// Snapshot returns the user's current synced state, or an empty snapshot if
// the user has never synced.
func (s *Store) Snapshot(userID int64) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state[userID]
	if !ok {
		return &Snapshot{
			Positions: make(map[string][]snaptrade.Position),
			Balances:  make(map[string][]snaptrade.Balance),
			Orders:    make(map[string][]snaptrade.Order),
		}
	}
	return current
}

// Clear drops the user's snapshot, typically after a broker disconnect.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, userID)
}

func (s *Store) acquire(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing[userID] {
		return apperrors.Conflict("sync already in progress")
	}
	s.syncing[userID] = true
	return nil
}

func (s *Store) release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncing, userID)
}
