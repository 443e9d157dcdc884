// Package webull imports executed trades through Webull's direct-login API.
// Unlike the aggregator path there is no OAuth redirect: the user supplies
// account credentials, the client holds a short-lived access token, and
// trades are fetched in one pass and handed to the journal.
package webull

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejournal/internal/broker"
	apperrors "tradejournal/internal/errors"
)

const (
	httpClientTimeout = 30 * time.Second

	// Webull salts the password hash with this constant.
	passwordSalt = "wl_app-a&b@!423^"
)

// SourceName identifies trades imported through this client.
const SourceName = "webull"

// Client is a Webull API client. Init must be called before Login, and Login
// before FetchTrades. The client implements broker.TradeSource.
type Client struct {
	baseURL    string
	httpClient *http.Client

	deviceID    string
	accessToken string
}

// NewClient creates a new Webull client against the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: httpClientTimeout,
		},
	}
}

// Name returns the source identifier recorded on imported trades.
func (c *Client) Name() string {
	return SourceName
}

// Init registers a device identity for this client instance. Webull rejects
// logins without a device id, so this must run before Login.
func (c *Client) Init(ctx context.Context) error {
	c.deviceID = strings.ReplaceAll(uuid.New().String(), "-", "")
	c.accessToken = ""
	log.Printf("[Webull] Initialized device %s", c.deviceID[:8])
	return ctx.Err()
}

// Login authenticates with Webull account credentials.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return apperrors.Validation("username and password are required")
	}
	if c.deviceID == "" {
		return apperrors.SessionState("client not initialized")
	}

	payload := loginRequest{
		Account:     username,
		AccountType: accountType(username),
		Password:    hashPassword(password),
		DeviceID:    c.deviceID,
		DeviceName:  "tradejournal",
		RegionID:    1,
	}

	var resp loginResponse
	if err := c.do(ctx, "POST", "/passport/login/v5/account", payload, &resp); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return apperrors.Unauthorized("broker login rejected")
	}

	c.accessToken = resp.AccessToken
	return nil
}

// FetchTrades returns the user's filled orders as journal executions.
// Non-filled orders are skipped.
func (c *Client) FetchTrades(ctx context.Context) ([]broker.Execution, error) {
	if c.accessToken == "" {
		return nil, apperrors.SessionState("not logged in")
	}

	var resp ordersResponse
	if err := c.do(ctx, "GET", "/trade/v2/orders?status=Filled", nil, &resp); err != nil {
		return nil, err
	}

	executions := make([]broker.Execution, 0, len(resp.Items))
	for _, item := range resp.Items {
		if !strings.EqualFold(item.Status, "Filled") {
			continue
		}
		exec, err := toExecution(item)
		if err != nil {
			log.Printf("[Webull] Skipping order %d: %v", item.OrderID, err)
			continue
		}
		executions = append(executions, exec)
	}
	return executions, nil
}

// Logout invalidates the access token. Safe to call when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken == "" {
		return nil
	}
	err := c.do(ctx, "POST", "/passport/login/logout", nil, nil)
	c.accessToken = ""
	return err
}

func toExecution(item orderItem) (broker.Execution, error) {
	quantity, err := decimal.NewFromString(item.FilledQuantity)
	if err != nil {
		return broker.Execution{}, fmt.Errorf("parsing quantity %q: %w", item.FilledQuantity, err)
	}
	price, err := decimal.NewFromString(item.AvgFilledPrice)
	if err != nil {
		return broker.Execution{}, fmt.Errorf("parsing price %q: %w", item.AvgFilledPrice, err)
	}
	fees := decimal.Zero
	if item.Fee != "" {
		if fees, err = decimal.NewFromString(item.Fee); err != nil {
			return broker.Execution{}, fmt.Errorf("parsing fee %q: %w", item.Fee, err)
		}
	}

	executedAt, err := parseTime(item.FilledTime)
	if err != nil {
		return broker.Execution{}, err
	}

	return broker.Execution{
		ExternalID: fmt.Sprintf("%d", item.OrderID),
		AccountID:  fmt.Sprintf("%d", item.AccountID),
		Symbol:     item.Ticker.Symbol,
		Side:       strings.ToLower(item.Action),
		Quantity:   quantity,
		Price:      price,
		Fees:       fees,
		Currency:   item.Ticker.Currency,
		ExecutedAt: executedAt,
	}, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// accountType distinguishes email logins from phone logins.
func accountType(username string) int {
	if strings.Contains(username, "@") {
		return 2
	}
	return 1
}

func hashPassword(password string) string {
	sum := md5.Sum([]byte(passwordSalt + password))
	return hex.EncodeToString(sum[:])
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("did", c.deviceID)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("access_token", c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Transport(0, fmt.Sprintf("webull request failed: %s %s", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport(resp.StatusCode, "reading webull response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperrors.Unauthorized("broker rejected credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Transport(resp.StatusCode, string(respBody), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding webull response: %w", err)
	}
	return nil
}
