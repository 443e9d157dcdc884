package snaptrade

import (
	"errors"
	"strings"
)

var (
	// ErrUserExists is returned when registration hits an identifier that the
	// aggregator already knows. Callers retry with an alternate identifier.
	ErrUserExists = errors.New("aggregator user already exists")

	// ErrNoRedirectURI is returned when a login response carries no portal
	// URL. Distinct from a transport error: the request itself succeeded.
	ErrNoRedirectURI = errors.New("connection link response missing redirect URI")
)

// isUserExists recognizes the aggregator's duplicate-registration responses.
// The body wording varies between API revisions, so match loosely.
func isUserExists(statusCode int, body string) bool {
	if statusCode != 400 && statusCode != 409 {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "already exist") || strings.Contains(lower, "already registered")
}
