package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"tradejournal/internal/connect"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/middleware"
)

// BrokerHandler drives the broker connection flow over HTTP: starting a
// connection attempt, serving the portal hand-off (as JSON or QR code),
// resolving the aggregator callback, and disconnecting.
type BrokerHandler struct {
	deps *Dependencies
}

// NewBrokerHandler creates a new BrokerHandler.
func NewBrokerHandler(deps *Dependencies) *BrokerHandler {
	return &BrokerHandler{deps: deps}
}

type connectRequest struct {
	BrokerID string `json:"broker_id"`
}

// Connect starts a connection attempt and returns the pending session,
// including the portal redirect URI the browser must open.
func (h *BrokerHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req connectRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	session, err := h.deps.FlowController.Start(r.Context(), user.ID, req.BrokerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// ConnectQR renders the session's portal URL as a QR code PNG, so the
// connection can be finished on a phone.
func (h *BrokerHandler) ConnectQR(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.deps.FlowController.Status(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading session", err))
		return
	}
	if session == nil || session.ID != sessionID || !session.IsPending() {
		respondError(w, apperrors.SessionState("invalid or expired session"))
		return
	}

	png, err := qrcode.Encode(session.RedirectURI, qrcode.Medium, 256)
	if err != nil {
		respondError(w, apperrors.Internal("rendering QR code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// Callback resolves a connection attempt from the aggregator's redirect.
func (h *BrokerHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	authorizationID := r.URL.Query().Get("authorizationId")
	if sessionID == "" {
		respondError(w, apperrors.Validation("sessionId is required"))
		return
	}

	if err := h.deps.FlowController.Resolve(r.Context(), sessionID, authorizationID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// PortalEvent accepts a typed event posted by the portal page.
func (h *BrokerHandler) PortalEvent(w http.ResponseWriter, r *http.Request) {
	var event connect.PortalEvent
	if err := decodeJSON(r, &event); err != nil {
		respondError(w, err)
		return
	}

	if err := h.deps.FlowController.HandlePortalEvent(r.Context(), event); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "handled"})
}

// Status returns the user's latest connection session, if any.
func (h *BrokerHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	session, err := h.deps.FlowController.Status(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading session", err))
		return
	}
	if session == nil {
		respondError(w, apperrors.NotFound("connection session"))
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Brokerages lists the institutions available through the aggregator.
func (h *BrokerHandler) Brokerages(w http.ResponseWriter, r *http.Request) {
	brokerages, err := h.deps.Aggregator.ListBrokerages(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, brokerages)
}

// Disconnect removes the user's aggregator credential and drops synced data.
func (h *BrokerHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := h.deps.FlowController.Disconnect(user.ID); err != nil {
		respondError(w, err)
		return
	}
	h.deps.SyncStore.Clear(user.ID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
