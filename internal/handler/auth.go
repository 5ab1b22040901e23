package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dvanbeek/boodschap/internal/auth"
	"github.com/dvanbeek/boodschap/internal/middleware"
	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

const sessionTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	users  *store.UserStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewAuthHandler(us *store.UserStore, hub *ws.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, hub: hub, logger: logger}
}

type loginRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

// Login checks name+PIN and issues a fresh session token. Logging in again
// anywhere rotates the token, so older sessions of the same user go stale;
// the broadcast lets their clients notice right away instead of at the next
// poll.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "name and pin are required")
		return
	}

	user, token, err := h.users.Authenticate(req.Name, req.PIN)
	if err != nil {
		if errors.Is(err, store.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid name or PIN")
			return
		}
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})

	h.hub.Broadcast(ws.NewMessage("user", "updated", user.ID, nil))
	writeJSON(w, http.StatusOK, user)
}

// Logout clears the cookie. The server-side token stays put: the user's most
// recent login elsewhere keeps working, and this device simply forgets who it
// was.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Session reports who the cookie belongs to. Pollers hit this to detect a
// rotated-out session; RequireAuth already did the work.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": ac.UserID,
		"name":    ac.Name,
		"color":   ac.Color,
	})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
