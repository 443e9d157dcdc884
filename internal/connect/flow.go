// Package connect orchestrates the multi-step broker connection flow: ensure
// the user is registered with the aggregator, obtain a portal URL, persist a
// pending session, and resolve the session when the portal reports back.
package connect

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tradejournal/internal/broker/snaptrade"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

// aggregatorClient is the part of the aggregator API the flow uses.
type aggregatorClient interface {
	RegisterUser(ctx context.Context, userID string) (*snaptrade.Credential, error)
	CreateConnectionLink(ctx context.Context, userID, userSecret, brokerID, redirectURI string) (*snaptrade.ConnectionLink, error)
	ListConnections(ctx context.Context, userID, userSecret string) ([]snaptrade.Connection, error)
}

// credentialStore persists aggregator credentials per local user.
type credentialStore interface {
	GetByUserID(userID int64) (*models.BrokerCredential, error)
	Create(cred *models.BrokerCredential) (int64, error)
	Delete(userID int64) error
}

// sessionStore persists in-flight connection sessions.
type sessionStore interface {
	Create(sess *models.ConnectionSession) error
	GetByID(id string) (*models.ConnectionSession, error)
	GetLatestByUserID(userID int64) (*models.ConnectionSession, error)
	MarkCompleted(id, authorizationID string) error
	MarkError(id, message string) error
}

// SyncFunc triggers a full data sync after a connection completes.
type SyncFunc func(ctx context.Context, userID int64) error

// Controller drives connection attempts through their state machine.
// One controller serves all users; per-attempt state lives in the session
// store, not the controller.
type Controller struct {
	client      aggregatorClient
	credentials credentialStore
	sessions    sessionStore
	redirectURI string
	sync        SyncFunc
}

// NewController creates a connection flow controller. redirectURI is the
// callback URL handed to the aggregator portal.
func NewController(client aggregatorClient, credentials credentialStore, sessions sessionStore, redirectURI string, sync SyncFunc) *Controller {
	return &Controller{
		client:      client,
		credentials: credentials,
		sessions:    sessions,
		redirectURI: redirectURI,
		sync:        sync,
	}
}

// Start begins a connection attempt: registers the user with the aggregator
// if needed, requests a portal link, and persists a pending session. The
// returned session carries the redirect URI the browser must open.
func (c *Controller) Start(ctx context.Context, userID int64, brokerID string) (*models.ConnectionSession, error) {
	if c.redirectURI == "" {
		return nil, apperrors.Configuration("aggregator redirect URI is not configured")
	}

	cred, err := c.ensureCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	link, err := c.client.CreateConnectionLink(ctx, cred.ExternalUserID, cred.ExternalSecret, brokerID, c.redirectURI)
	if err != nil {
		return nil, err
	}

	sessionID := link.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	sess := &models.ConnectionSession{
		ID:          sessionID,
		UserID:      userID,
		BrokerID:    brokerID,
		RedirectURI: link.RedirectURI,
		Status:      models.SessionPending,
	}
	if err := c.sessions.Create(sess); err != nil {
		return nil, err
	}

	log.Printf("[Connect] Started session %s for user %d", sessionID, userID)
	return sess, nil
}

// ensureCredential returns the user's aggregator credential, registering one
// if none exists. An existing credential is never overwritten; replacement
// requires an explicit Disconnect first.
func (c *Controller) ensureCredential(ctx context.Context, userID int64) (*models.BrokerCredential, error) {
	existing, err := c.credentials.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	externalID := fmt.Sprintf("user-%d", userID)
	registered, err := c.client.RegisterUser(ctx, externalID)
	if errors.Is(err, snaptrade.ErrUserExists) {
		// The identifier is taken on the aggregator side but we hold no
		// secret for it. Retry once with a fresh identifier.
		externalID = fmt.Sprintf("user-%d-%s", userID, uuid.New().String()[:8])
		log.Printf("[Connect] User %d already registered upstream, retrying as %s", userID, externalID)
		registered, err = c.client.RegisterUser(ctx, externalID)
	}
	if err != nil {
		return nil, err
	}

	cred := &models.BrokerCredential{
		UserID:         userID,
		ExternalUserID: registered.UserID,
		ExternalSecret: registered.UserSecret,
	}
	if _, err := c.credentials.Create(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Resolve completes a connection attempt from a portal callback. The session
// must exist and still be pending; the aggregator must report an
// authorization matching the callback. On success the session is marked
// completed exactly once and a full sync is triggered.
func (c *Controller) Resolve(ctx context.Context, sessionID, authorizationID string) error {
	sess, err := c.sessions.GetByID(sessionID)
	if err != nil {
		return err
	}
	if sess == nil || !sess.IsPending() {
		return apperrors.SessionState("invalid or expired session")
	}

	cred, err := c.credentials.GetByUserID(sess.UserID)
	if err != nil {
		return err
	}
	if cred == nil {
		return apperrors.SessionState("user is not registered with the aggregator")
	}

	connections, err := c.client.ListConnections(ctx, cred.ExternalUserID, cred.ExternalSecret)
	if err != nil {
		return err
	}

	matched := matchConnection(connections, authorizationID, sessionID)
	if matched == nil {
		// The callback fired but the aggregator has no matching
		// authorization yet.
		return apperrors.NotFound("matching brokerage connection")
	}

	if err := c.sessions.MarkCompleted(sessionID, matched.BrokerageAuthorizationID); err != nil {
		return err
	}

	log.Printf("[Connect] Session %s resolved with authorization %s", sessionID, matched.BrokerageAuthorizationID)

	if c.sync != nil {
		if err := c.sync(ctx, sess.UserID); err != nil {
			// The connection itself completed; a failed initial sync is
			// reported by the sync store, not the flow.
			log.Printf("[Connect] Initial sync for user %d failed: %v", sess.UserID, err)
		}
	}
	return nil
}

func matchConnection(connections []snaptrade.Connection, authorizationID, sessionID string) *snaptrade.Connection {
	for i := range connections {
		conn := &connections[i]
		if authorizationID != "" && conn.BrokerageAuthorizationID == authorizationID {
			return conn
		}
		if authorizationID == "" && conn.BrokerageAuthorizationID == sessionID {
			return conn
		}
	}
	return nil
}

// HandlePortalEvent dispatches a typed portal event. Success resolves the
// session, Error records the failure, and Closed variants are no-ops.
func (c *Controller) HandlePortalEvent(ctx context.Context, event PortalEvent) error {
	switch event.Type {
	case EventSuccess:
		return c.Resolve(ctx, event.SessionID, event.AuthorizationID)
	case EventError:
		message := event.Message
		if message == "" {
			message = fmt.Sprintf("portal error %s", event.Code)
		}
		if event.SessionID != "" {
			if err := c.sessions.MarkError(event.SessionID, message); err != nil {
				return err
			}
		}
		log.Printf("[Connect] Portal reported error for session %s: %s", event.SessionID, message)
		return nil
	case EventClosed, EventCloseModal:
		return nil
	default:
		return apperrors.Validation(fmt.Sprintf("unknown portal event type %q", event.Type))
	}
}

// Status returns the user's most recent connection session, or nil.
func (c *Controller) Status(userID int64) (*models.ConnectionSession, error) {
	return c.sessions.GetLatestByUserID(userID)
}

// Disconnect removes the user's aggregator credential. After a disconnect a
// new registration may create a fresh credential.
func (c *Controller) Disconnect(userID int64) error {
	return c.credentials.Delete(userID)
}
