package snaptrade

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"tradejournal/internal/config"
	apperrors "tradejournal/internal/errors"
)

// requestSigner attaches aggregator authentication to an outgoing request.
// body is the raw request payload, empty for GETs.
type requestSigner interface {
	sign(req *http.Request, body []byte)
}

// newSigner selects the signer for the configured scheme. Exactly one scheme
// is active per deployment; there is no fallback between schemes.
func newSigner(cfg config.SnapTrade) (requestSigner, error) {
	switch cfg.AuthScheme {
	case config.AuthSchemeHMAC:
		return &hmacSigner{clientID: cfg.ClientID, consumerKey: cfg.ConsumerKey, now: time.Now}, nil
	case config.AuthSchemeAPIKey:
		return &apiKeySigner{consumerKey: cfg.ConsumerKey}, nil
	default:
		return nil, apperrors.Configuration(fmt.Sprintf("unknown aggregator auth scheme %q", cfg.AuthScheme))
	}
}

// hmacSigner signs requests with HMAC-SHA256 over clientId + timestamp and,
// when present, the request body. The timestamp in the signed content must
// match the Timestamp header exactly.
type hmacSigner struct {
	clientID    string
	consumerKey string
	now         func() time.Time
}

func (s *hmacSigner) sign(req *http.Request, body []byte) {
	timestamp := fmt.Sprintf("%d", s.now().Unix())

	mac := hmac.New(sha256.New, []byte(s.consumerKey))
	mac.Write([]byte(s.clientID + timestamp))
	if len(body) > 0 {
		mac.Write(body)
	}
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Signature", signature)
	req.Header.Set("Timestamp", timestamp)
	req.Header.Set("ClientId", s.clientID)
}

// apiKeySigner authenticates with a static key header.
type apiKeySigner struct {
	consumerKey string
}

func (s *apiKeySigner) sign(req *http.Request, _ []byte) {
	req.Header.Set("x-api-key", s.consumerKey)
}
