package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/repositories"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/charmbracelet/log"
)

// stateTTL bounds how long an issued login state stays redeemable.
const stateTTL = 10 * time.Minute

// SessionAuthHandler serves the browser login flow for the API server.
//
// GET /auth/login redirects to the provider's authorization page;
// GET /callback exchanges the code and persists a [models.Session] so later
// API calls can authenticate with the X-User-ID header.
type SessionAuthHandler struct {
	factory  CatalogFactory
	sessions *repositories.SessionRepository
	logger   *log.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewSessionAuthHandler creates a SessionAuthHandler with the given dependencies.
func NewSessionAuthHandler(factory CatalogFactory, sessions *repositories.SessionRepository, logger *log.Logger) *SessionAuthHandler {
	return &SessionAuthHandler{
		factory:  factory,
		sessions: sessions,
		logger:   logger,
		states:   map[string]time.Time{},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SessionAuthHandler) Routes() []string {
	return []string{"/auth/login", "/callback"}
}

// ServeHTTP dispatches to the route-specific handlers.
func (h *SessionAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.handleLogin(w, r)
	case "/callback":
		h.handleCallback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionAuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.factory()
	if err != nil {
		h.logger.Error("catalog construction failed", "error", err)
		http.Error(w, "Service unavailable", http.StatusInternalServerError)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.states[state] = time.Now().Add(stateTTL)
	for s, expiry := range h.states {
		if time.Now().After(expiry) {
			delete(h.states, s)
		}
	}
	h.mu.Unlock()

	http.Redirect(w, r, catalog.GetAuthURL(state), http.StatusFound)
}

func (h *SessionAuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !h.redeemState(state) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errParam), http.StatusBadRequest)
		return
	}

	catalog, err := h.factory()
	if err != nil {
		h.logger.Error("catalog construction failed", "error", err)
		http.Error(w, "Service unavailable", http.StatusInternalServerError)
		return
	}

	token, err := catalog.GetOAuthConfig().Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	if err := catalog.OAuthenticate(r.Context(), token); err != nil {
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := catalog.CurrentUser(r.Context())
	if err != nil {
		h.logger.Warn("profile lookup failed", "error", err)
		http.Error(w, "Failed to load user profile", http.StatusInternalServerError)
		return
	}

	if err := h.saveSession(user.ID, user.DisplayName, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		h.logger.Error("failed to persist session", "user", user.ID, "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session created", "user", user.ID)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, resultPage("Signed In",
		fmt.Sprintf("Use header <code>X-User-ID: %s</code> on API requests.", user.ID)))
}

// redeemState consumes a state token, returning whether it was valid and unexpired.
func (h *SessionAuthHandler) redeemState(state string) bool {
	if state == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	expiry, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Now().Before(expiry)
}

// saveSession creates a session for the user, or rotates tokens on the existing one.
func (h *SessionAuthHandler) saveSession(userID, displayName, accessToken, refreshToken string, expiry time.Time) error {
	existing, err := h.sessions.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNoSession) {
			return err
		}
		session := models.NewSession(0, userID, displayName, accessToken, refreshToken, expiry)
		return h.sessions.Create(session)
	}

	existing.SetTokens(accessToken, refreshToken, expiry)
	return h.sessions.Update(existing)
}
