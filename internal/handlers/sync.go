package handlers

import (
	"net/http"
	"strconv"

	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/middleware"
)

// SyncHandler exposes data synchronization over HTTP.
type SyncHandler struct {
	deps *Dependencies
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(deps *Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// Trigger runs a full sync for the authenticated user. A partial sync
// returns 200 with the snapshot's error field set, so the client still gets
// the data that did refresh.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	err := h.deps.SyncStore.SyncAll(r.Context(), user.ID)
	if err != nil && !apperrors.IsPartialSync(err) {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.SyncStore.Snapshot(user.ID))
}

// RefreshAccount refreshes one account's collections.
func (h *SyncHandler) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		respondError(w, apperrors.Validation("accountId is required"))
		return
	}

	err := h.deps.SyncStore.RefreshAccount(r.Context(), user.ID, accountID)
	if err != nil && !apperrors.IsPartialSync(err) {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.SyncStore.Snapshot(user.ID))
}

// Snapshot returns the current synced state without refreshing.
func (h *SyncHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	respondJSON(w, http.StatusOK, h.deps.SyncStore.Snapshot(user.ID))
}

// History returns recent sync runs.
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	history, err := h.deps.SyncHistoryRepo.GetByUserID(user.ID, limit)
	if err != nil {
		respondError(w, apperrors.Internal("loading sync history", err))
		return
	}
	respondJSON(w, http.StatusOK, history)
}
