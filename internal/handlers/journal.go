package handlers

import (
	"context"
	"net/http"
	"strconv"

	"tradejournal/internal/broker"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/middleware"
)

// WebullImportFunc builds an initialized direct-login client. A fresh client
// is created per import so device identity and tokens never leak between
// users.
type WebullImportFunc func(ctx context.Context) (broker.TradeSource, error)

// JournalHandler exposes the trade journal over HTTP.
type JournalHandler struct {
	deps *Dependencies
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(deps *Dependencies) *JournalHandler {
	return &JournalHandler{deps: deps}
}

// Trades returns the user's most recent trades.
func (h *JournalHandler) Trades(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	trades, err := h.deps.Journal.Trades(user.ID, limit)
	if err != nil {
		respondError(w, apperrors.Internal("loading trades", err))
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

// Summary returns realized P&L per symbol.
func (h *JournalHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	summary, err := h.deps.Journal.Summarize(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("computing summary", err))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type importRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ImportWebull logs into Webull with the submitted credentials, imports all
// executed trades, and logs out. Credentials are used once and not stored.
func (h *JournalHandler) ImportWebull(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, apperrors.Validation("username and password are required"))
		return
	}

	source, err := h.deps.WebullImport(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	recorded, err := h.deps.Journal.ImportFromSource(r.Context(), source, user.ID, req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": recorded})
}
