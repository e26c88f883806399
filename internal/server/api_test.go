package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/repositories"
	"github.com/auralabs/moodmix/internal/services"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/auralabs/moodmix/internal/tasks"
	tu "github.com/auralabs/moodmix/internal/testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

type stubGenerator struct {
	result *models.GenerationResult
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, progress chan<- tasks.ProgressUpdate, userID string, req models.GenerationRequest) (*models.GenerationResult, error) {
	return s.result, s.err
}

// newTestHandler builds an APIHandler whose factory yields the given mock and
// whose engine is the given stub.
func newTestHandler(t *testing.T, catalog *tu.MockCatalog, generator tasks.Generator) (*APIHandler, *repositories.SessionRepository, *repositories.GenerationRepository) {
	t.Helper()

	db := setupTestDB(t)
	sessions := repositories.NewSessionRepository(db)
	generations := repositories.NewGenerationRepository(db)

	factory := func() (services.OAuthService, error) {
		return catalog, nil
	}

	handler := NewAPIHandler(factory, sessions, generations, shared.NewLogger(nil))
	if generator != nil {
		handler.newEngine = func(services.Catalog) tasks.Generator { return generator }
	}

	return handler, sessions, generations
}

func seedSession(t *testing.T, sessions *repositories.SessionRepository, userID string) {
	t.Helper()
	session := models.NewSession(0, userID, "Test User", "access", "refresh", time.Now().Add(time.Hour))
	if err := sessions.Create(session); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMoodsEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/moods", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Moods []string `json:"moods"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Moods) != 10 {
		t.Errorf("got %d moods, want 10", len(body.Moods))
	}
}

func TestGenerateEndpoint(t *testing.T) {
	validBody := `{"artist_names":["Artist One"],"genre":"pop","mood":"Happy"}`

	t.Run("creates playlist and records history", func(t *testing.T) {
		result := &models.GenerationResult{
			Playlist: models.Playlist{ID: "pl1", Name: "Happy pop Mix"},
			Tracks:   []models.TrackSummary{{Name: "Song", Artist: "Artist One"}},
		}
		handler, sessions, generations := newTestHandler(t, &tu.MockCatalog{}, &stubGenerator{result: result})
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}

		records, err := generations.List(map[string]any{"user_id": "user1"})
		if err != nil {
			t.Fatalf("failed to list generations: %v", err)
		}
		if len(records) != 1 || records[0].PlaylistID() != "pl1" {
			t.Errorf("history records = %v", records)
		}
	})

	t.Run("requires user header", func(t *testing.T) {
		handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "stranger")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("rejects incomplete request", func(t *testing.T) {
		handler, sessions, _ := newTestHandler(t, &tu.MockCatalog{}, nil)
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"genre":"pop"}`))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("maps no valid artists to 400", func(t *testing.T) {
		generator := &stubGenerator{err: fmt.Errorf("%w: nothing matched", shared.ErrNoValidArtists)}
		handler, sessions, _ := newTestHandler(t, &tu.MockCatalog{}, generator)
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("maps provider rate limit to 502", func(t *testing.T) {
		generator := &stubGenerator{err: &services.CatalogError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}}
		handler, sessions, _ := newTestHandler(t, &tu.MockCatalog{}, generator)
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("passes provider auth failures through", func(t *testing.T) {
		generator := &stubGenerator{err: &services.CatalogError{StatusCode: http.StatusUnauthorized, Message: "expired"}}
		handler, sessions, _ := newTestHandler(t, &tu.MockCatalog{}, generator)
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("maps timeout to 504", func(t *testing.T) {
		generator := &stubGenerator{err: context.DeadlineExceeded}
		handler, sessions, _ := newTestHandler(t, &tu.MockCatalog{}, generator)
		seedSession(t, sessions, "user1")

		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(validBody))
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusGatewayTimeout {
			t.Errorf("status = %d, want 504", rec.Code)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/generate", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestArtistSearchEndpoint(t *testing.T) {
	t.Run("returns matches", func(t *testing.T) {
		catalog := &tu.MockCatalog{
			SearchArtistsFunc: func(ctx context.Context, query string, limit int) ([]models.Artist, error) {
				return []models.Artist{{ID: "a1", Name: "Radiohead"}}, nil
			},
		}
		handler, _, _ := newTestHandler(t, catalog, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/artists/search?q=radiohead", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Radiohead") {
			t.Errorf("body = %s", rec.Body.String())
		}
		if catalog.CallCount("AppAuthenticate") != 1 {
			t.Error("search should use app authentication")
		}
	})

	t.Run("requires query", func(t *testing.T) {
		handler, _, _ := newTestHandler(t, &tu.MockCatalog{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/artists/search", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHistoryEndpoint(t *testing.T) {
	handler, _, generations := newTestHandler(t, &tu.MockCatalog{}, nil)

	record := models.NewGeneration(0, "user1", models.Playlist{ID: "pl1", Name: "Happy pop Mix"}, "Happy", "pop", []string{"Artist"}, 12)
	if err := generations.Create(record); err != nil {
		t.Fatalf("failed to seed generation: %v", err)
	}

	t.Run("lists user generations", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		req.Header.Set("X-User-ID", "user1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Happy pop Mix") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("requires user header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestSessionAuthHandlerLogin(t *testing.T) {
	db := setupTestDB(t)
	sessions := repositories.NewSessionRepository(db)
	factory := func() (services.OAuthService, error) {
		return &tu.MockCatalog{}, nil
	}
	handler := NewSessionAuthHandler(factory, sessions, shared.NewLogger(nil))

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.Contains(location, "state=") {
		t.Errorf("redirect location missing state: %s", location)
	}
}

func TestSessionAuthHandlerCallbackRejectsBadState(t *testing.T) {
	db := setupTestDB(t)
	sessions := repositories.NewSessionRepository(db)
	factory := func() (services.OAuthService, error) {
		return &tu.MockCatalog{}, nil
	}
	handler := NewSessionAuthHandler(factory, sessions, shared.NewLogger(nil))

	req := httptest.NewRequest(http.MethodGet, "/callback?state=bogus&code=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
