package handlers

import (
	"net/http"
	"strings"

	"tradejournal/internal/auth"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/middleware"
	"tradejournal/internal/models"
)

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	deps *Dependencies
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{deps: deps}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account and logs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = middleware.SanitizeString(req.Name)

	if !middleware.ValidateEmail(req.Email) {
		respondError(w, apperrors.Validation("invalid email address"))
		return
	}
	if !middleware.ValidateLength(req.Password, 8, 128) {
		respondError(w, apperrors.Validation("password must be between 8 and 128 characters"))
		return
	}

	existing, err := h.deps.UserRepo.GetByEmail(req.Email)
	if err != nil {
		respondError(w, apperrors.Internal("checking existing user", err))
		return
	}
	if existing != nil {
		respondError(w, apperrors.Conflict("email is already registered"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, apperrors.Internal("hashing password", err))
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	id, err := h.deps.UserRepo.Create(user)
	if err != nil {
		respondError(w, apperrors.Internal("creating user", err))
		return
	}
	user.ID = id

	if !h.startSession(w, user) {
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login authenticates a user and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.deps.UserRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, apperrors.Internal("looking up user", err))
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, apperrors.Unauthorized("invalid email or password"))
		return
	}

	if !h.startSession(w, user) {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Logout ends the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.deps.SessionManager.Delete(cookie.Value); err != nil {
			respondError(w, apperrors.Internal("deleting session", err))
			return
		}
	}
	middleware.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, middleware.GetUser(r))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user *models.User) bool {
	session, err := h.deps.SessionManager.Create(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("creating session", err))
		return false
	}
	middleware.SetSessionCookie(w, session.ID, h.deps.SessionMaxAge)
	return true
}
