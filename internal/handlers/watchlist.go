package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/middleware"
)

// WatchlistHandler manages watched symbols and serves quotes for them.
type WatchlistHandler struct {
	deps *Dependencies
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(deps *Dependencies) *WatchlistHandler {
	return &WatchlistHandler{deps: deps}
}

type watchRequest struct {
	Symbol string `json:"symbol"`
}

// List returns the user's watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	items, err := h.deps.WatchlistRepo.GetByUserID(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading watchlist", err))
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Add puts a symbol on the watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req watchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if !middleware.ValidateSymbol(symbol) {
		respondError(w, apperrors.Validation("invalid symbol"))
		return
	}

	if _, err := h.deps.WatchlistRepo.Add(user.ID, symbol); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"symbol": symbol})
}

// Remove takes a symbol off the watchlist.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	symbol := chi.URLParam(r, "symbol")

	if err := h.deps.WatchlistRepo.Remove(user.ID, symbol); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Quote returns the latest quote for a symbol.
func (h *WatchlistHandler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if !middleware.ValidateSymbol(strings.ToUpper(symbol)) {
		respondError(w, apperrors.Validation("invalid symbol"))
		return
	}

	quote, err := h.deps.Quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
