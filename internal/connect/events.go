package connect

// Portal event types. The aggregator-hosted portal reports completion either
// through a redirect callback or by posting one of these typed events.
const (
	EventSuccess    = "SUCCESS"
	EventError      = "ERROR"
	EventClosed     = "CLOSED"
	EventCloseModal = "CLOSE_MODAL"
)

// PortalEvent is a message from the aggregator-hosted connection portal.
type PortalEvent struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	Code            string `json:"code,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
	Message         string `json:"message,omitempty"`
}
