package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradejournal/internal/config"
	apperrors "tradejournal/internal/errors"
)

// QuoteClient fetches one-shot quotes over REST, independent of the stream.
type QuoteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewQuoteClient creates a REST quote client.
func NewQuoteClient(cfg config.MarketData) *QuoteClient {
	return &QuoteClient{
		baseURL: strings.TrimRight(cfg.QuoteURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetQuote fetches the latest quote for a symbol.
func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperrors.Validation("symbol is required")
	}

	endpoint := fmt.Sprintf("%s/quotes/%s", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Transport(0, fmt.Sprintf("quote request for %s failed", symbol), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(resp.StatusCode, "reading quote response", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("symbol")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Transport(resp.StatusCode, string(body), nil)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decoding quote: %w", err)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return &quote, nil
}
