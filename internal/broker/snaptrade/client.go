// Package snaptrade is a client for the brokerage aggregator's REST API.
// It signs every request with the deployment's configured auth scheme and
// normalizes the aggregator's loose response shapes into canonical types.
package snaptrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tradejournal/internal/config"
	apperrors "tradejournal/internal/errors"
)

const (
	httpClientTimeout = 30 * time.Second

	// Minimum spacing between requests to the aggregator.
	requestDelay = 200 * time.Millisecond
)

// Client provides methods for accessing the aggregator API. It holds no user
// state: callers pass the registered userId/userSecret pair on every call.
type Client struct {
	baseURL    string
	signer     requestSigner
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new aggregator client for the configured deployment.
func NewClient(cfg config.SnapTrade) (*Client, error) {
	signer, err := newSigner(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		signer:  signer,
		httpClient: &http.Client{
			Timeout: httpClientTimeout,
		},
	}, nil
}

// RegisterUser registers a local user identifier with the aggregator and
// returns the credential pair. The caller persists the secret; registering an
// identifier the aggregator already knows returns ErrUserExists.
func (c *Client) RegisterUser(ctx context.Context, userID string) (*Credential, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}

	var cred Credential
	err := c.do(ctx, "POST", "/snapTrade/registerUser", nil, map[string]string{"userId": userID}, &cred)
	if err != nil {
		return nil, err
	}
	if cred.UserID == "" || cred.UserSecret == "" {
		return nil, apperrors.Transport(0, "registration response missing credential fields", nil)
	}
	return &cred, nil
}

// CreateConnectionLink requests a portal URL the user's browser must open to
// authorize a brokerage connection. brokerID and redirectURI are optional.
func (c *Client) CreateConnectionLink(ctx context.Context, userID, userSecret, brokerID, redirectURI string) (*ConnectionLink, error) {
	if userID == "" || userSecret == "" {
		return nil, apperrors.Validation("user id and user secret are required")
	}

	payload := map[string]string{
		"userId":     userID,
		"userSecret": userSecret,
	}
	if brokerID != "" {
		payload["broker"] = brokerID
	}
	if redirectURI != "" {
		payload["customRedirect"] = redirectURI
	}

	var link ConnectionLink
	if err := c.do(ctx, "POST", "/snapTrade/login", nil, payload, &link); err != nil {
		return nil, err
	}
	if link.RedirectURI == "" {
		return nil, ErrNoRedirectURI
	}
	return &link, nil
}

// ListBrokerages retrieves the institutions the aggregator supports.
func (c *Client) ListBrokerages(ctx context.Context) ([]Brokerage, error) {
	var brokerages []Brokerage
	if err := c.do(ctx, "GET", "/brokerages", nil, nil, &brokerages); err != nil {
		return nil, err
	}
	return brokerages, nil
}

// ListConnections retrieves the user's brokerage authorizations.
func (c *Client) ListConnections(ctx context.Context, userID, userSecret string) ([]Connection, error) {
	query, err := userQuery(userID, userSecret, "")
	if err != nil {
		return nil, err
	}

	var connections []Connection
	if err := c.do(ctx, "GET", "/authorizations", query, nil, &connections); err != nil {
		return nil, err
	}
	return connections, nil
}

// GetAccounts retrieves all accounts visible through the user's connections.
func (c *Client) GetAccounts(ctx context.Context, userID, userSecret string) ([]Account, error) {
	query, err := userQuery(userID, userSecret, "")
	if err != nil {
		return nil, err
	}

	var accounts []Account
	if err := c.do(ctx, "GET", "/accounts", query, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetPositions retrieves the holdings of one account.
func (c *Client) GetPositions(ctx context.Context, userID, userSecret, accountID string) ([]Position, error) {
	query, err := userQuery(userID, userSecret, accountID)
	if err != nil {
		return nil, err
	}

	var positions []Position
	path := fmt.Sprintf("/accounts/%s/positions", url.PathEscape(accountID))
	if err := c.do(ctx, "GET", path, query, nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetBalances retrieves the currency balances of one account.
func (c *Client) GetBalances(ctx context.Context, userID, userSecret, accountID string) ([]Balance, error) {
	query, err := userQuery(userID, userSecret, accountID)
	if err != nil {
		return nil, err
	}

	var balances []Balance
	path := fmt.Sprintf("/accounts/%s/balances", url.PathEscape(accountID))
	if err := c.do(ctx, "GET", path, query, nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetOrders retrieves the orders reported for one account.
func (c *Client) GetOrders(ctx context.Context, userID, userSecret, accountID string) ([]Order, error) {
	query, err := userQuery(userID, userSecret, accountID)
	if err != nil {
		return nil, err
	}

	var orders []Order
	path := fmt.Sprintf("/accounts/%s/orders", url.PathEscape(accountID))
	if err := c.do(ctx, "GET", path, query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func userQuery(userID, userSecret, accountID string) (url.Values, error) {
	if userID == "" || userSecret == "" {
		return nil, apperrors.Validation("user id and user secret are required")
	}
	query := url.Values{}
	query.Set("userId", userID)
	query.Set("userSecret", userSecret)
	if accountID != "" {
		query.Set("accountId", accountID)
	}
	return query, nil
}

// do performs one signed request and decodes the response into out. Non-2xx
// responses become transport errors carrying the aggregator's body verbatim,
// except duplicate registrations which map to ErrUserExists.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	c.throttle()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	c.signer.sign(req, body)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Transport(0, fmt.Sprintf("aggregator request failed: %s %s", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport(resp.StatusCode, "reading aggregator response", err)
	}

	log.Printf("[SnapTrade] %s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if isUserExists(resp.StatusCode, string(respBody)) {
			return ErrUserExists
		}
		return apperrors.Transport(resp.StatusCode, string(respBody), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding aggregator response: %w", err)
	}
	return nil
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed := time.Since(c.lastRequest); elapsed < requestDelay {
		time.Sleep(requestDelay - elapsed)
	}
	c.lastRequest = time.Now()
}
