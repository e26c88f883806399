package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/repositories"
	"github.com/auralabs/moodmix/internal/services"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/auralabs/moodmix/internal/tasks"
	"github.com/charmbracelet/log"
)

// generateTimeout is the overall deadline for one generation run, bounding
// every fan-out stage so a stalled sub-call cannot hang the request.
const generateTimeout = 2 * time.Minute

// CatalogFactory constructs a fresh catalog client for a request.
// Each signed-in user gets their own authenticated client instance.
type CatalogFactory func() (services.OAuthService, error)

// APIHandler serves the JSON API for playlist generation.
// Implements the Handler interface for registration with a Router.
type APIHandler struct {
	factory     CatalogFactory
	sessions    *repositories.SessionRepository
	generations *repositories.GenerationRepository
	logger      *log.Logger
	newEngine   func(services.Catalog) tasks.Generator
}

// NewAPIHandler creates an APIHandler with the given dependencies.
func NewAPIHandler(factory CatalogFactory, sessions *repositories.SessionRepository, generations *repositories.GenerationRepository, logger *log.Logger) *APIHandler {
	return &APIHandler{
		factory:     factory,
		sessions:    sessions,
		generations: generations,
		logger:      logger,
		newEngine: func(catalog services.Catalog) tasks.Generator {
			return tasks.NewGenerateEngine(catalog)
		},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/health", "/api/moods", "/api/generate", "/api/artists/search", "/api/history"}
}

// ServeHTTP dispatches to the route-specific handlers.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		h.handleHealth(w, r)
	case "/api/moods":
		h.handleMoods(w, r)
	case "/api/generate":
		h.handleGenerate(w, r)
	case "/api/artists/search":
		h.handleArtistSearch(w, r)
	case "/api/history":
		h.handleHistory(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) handleMoods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"moods": moods.Names()})
}

type generateRequest struct {
	ArtistNames []string `json:"artist_names"`
	Genre       string   `json:"genre"`
	Mood        string   `json:"mood"`
}

func (h *APIHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ArtistNames) == 0 || req.Genre == "" || req.Mood == "" {
		h.writeError(w, http.StatusBadRequest, "artist_names, genre, and mood are required")
		return
	}

	session, err := h.sessions.GetByUserID(userID)
	if err != nil {
		h.logger.Warn("session lookup failed", "user", userID, "error", err)
		h.writeError(w, http.StatusUnauthorized, "no active session, sign in again")
		return
	}

	catalog, err := h.factory()
	if err != nil {
		h.logger.Error("catalog construction failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "service unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	if err := catalog.Authenticate(ctx, map[string]string{
		"access_token":  session.AccessToken(),
		"refresh_token": session.RefreshToken(),
	}); err != nil {
		h.logger.Warn("catalog authentication failed", "user", userID, "error", err)
		h.writeError(w, http.StatusUnauthorized, "Spotify authentication failed, sign in again")
		return
	}

	engine := h.newEngine(catalog)
	result, err := engine.Generate(ctx, nil, userID, models.GenerationRequest{
		ArtistNames: req.ArtistNames,
		Genre:       req.Genre,
		Mood:        req.Mood,
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	record := models.NewGeneration(0, userID, result.Playlist, req.Mood, req.Genre, req.ArtistNames, len(result.Tracks))
	if err := h.generations.Create(record); err != nil {
		// The playlist exists remotely; history is best-effort.
		h.logger.Warn("failed to record generation", "playlist", result.Playlist.ID, "error", err)
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func (h *APIHandler) writeGenerateError(w http.ResponseWriter, err error) {
	var catErr *services.CatalogError
	switch {
	case errors.As(err, &catErr):
		status := http.StatusBadGateway
		if catErr.StatusCode == http.StatusUnauthorized || catErr.StatusCode == http.StatusForbidden {
			status = catErr.StatusCode
		}
		h.writeError(w, status, catErr.UserMessage())
	case errors.Is(err, shared.ErrNoValidArtists), errors.Is(err, shared.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "generation timed out")
	default:
		h.logger.Error("generation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "playlist generation failed")
	}
}

func (h *APIHandler) handleArtistSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	catalog, err := h.factory()
	if err != nil {
		h.logger.Error("catalog construction failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "service unavailable")
		return
	}

	// Artist search is a read-only lookup; an app-level token suffices.
	if err := h.appAuthenticate(r.Context(), catalog); err != nil {
		h.logger.Error("app authentication failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "Spotify authentication failed")
		return
	}

	artists, err := catalog.SearchArtists(r.Context(), query, 5)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"artists": artists})
}

func (h *APIHandler) appAuthenticate(ctx context.Context, catalog services.OAuthService) error {
	type appAuthenticator interface {
		AppAuthenticate(ctx context.Context) error
	}
	if app, ok := catalog.(appAuthenticator); ok {
		return app.AppAuthenticate(ctx)
	}
	return shared.ErrNotAuthenticated
}

type historyEntry struct {
	PlaylistID   string    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name"`
	PlaylistURL  string    `json:"playlist_url"`
	Mood         string    `json:"mood"`
	Genre        string    `json:"genre"`
	ArtistNames  []string  `json:"artist_names"`
	TrackCount   int       `json:"track_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	generations, err := h.generations.List(map[string]any{"user_id": userID})
	if err != nil {
		h.logger.Error("history lookup failed", "user", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	entries := make([]historyEntry, 0, len(generations))
	for _, g := range generations {
		entries = append(entries, historyEntry{
			PlaylistID:   g.PlaylistID(),
			PlaylistName: g.PlaylistName(),
			PlaylistURL:  g.PlaylistURL(),
			Mood:         g.Mood(),
			Genre:        g.Genre(),
			ArtistNames:  g.ArtistNames(),
			TrackCount:   g.TrackCount(),
			CreatedAt:    g.CreatedAt(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"generations": entries})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
