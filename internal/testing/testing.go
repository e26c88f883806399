// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/services"
	"golang.org/x/oauth2"
)

// MockCatalog is a test double for [services.Catalog].
//
// Behavior is driven by the function fields; unset fields return zero values.
// Every call is recorded in Calls for assertion.
type MockCatalog struct {
	mu    sync.Mutex
	Calls []string

	AuthenticateFunc        func(ctx context.Context, credentials map[string]string) error
	OAuthenticateFunc       func(ctx context.Context, token *oauth2.Token) error
	SearchArtistsFunc       func(ctx context.Context, query string, limit int) ([]models.Artist, error)
	GetArtistFunc           func(ctx context.Context, artistID string) (*models.Artist, error)
	GetTopTracksFunc        func(ctx context.Context, artistID string) ([]models.Track, error)
	GetAudioFeaturesFunc    func(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error)
	GetRecommendationsFunc  func(ctx context.Context, seedArtists, seedGenres []string, profile moods.Profile) ([]models.Track, error)
	CreatePlaylistFunc      func(ctx context.Context, userID, name, description string) (*models.Playlist, error)
	AddTracksToPlaylistFunc func(ctx context.Context, playlistID string, trackURIs []string) error
	CurrentUserFunc         func(ctx context.Context) (*services.SpotifyUser, error)
}

func (m *MockCatalog) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns the number of recorded calls with the given name prefix.
func (m *MockCatalog) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if len(call) >= len(name) && call[:len(name)] == name {
			count++
		}
	}
	return count
}

func (m *MockCatalog) Authenticate(ctx context.Context, credentials map[string]string) error {
	m.record("Authenticate")
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, credentials)
	}
	return nil
}

func (m *MockCatalog) SearchArtists(ctx context.Context, query string, limit int) ([]models.Artist, error) {
	m.record(fmt.Sprintf("SearchArtists:%s", query))
	if m.SearchArtistsFunc != nil {
		return m.SearchArtistsFunc(ctx, query, limit)
	}
	return []models.Artist{}, nil
}

func (m *MockCatalog) GetArtist(ctx context.Context, artistID string) (*models.Artist, error) {
	m.record(fmt.Sprintf("GetArtist:%s", artistID))
	if m.GetArtistFunc != nil {
		return m.GetArtistFunc(ctx, artistID)
	}
	return nil, nil
}

func (m *MockCatalog) GetTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	m.record(fmt.Sprintf("GetTopTracks:%s", artistID))
	if m.GetTopTracksFunc != nil {
		return m.GetTopTracksFunc(ctx, artistID)
	}
	return []models.Track{}, nil
}

func (m *MockCatalog) GetAudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error) {
	m.record("GetAudioFeatures")
	if m.GetAudioFeaturesFunc != nil {
		return m.GetAudioFeaturesFunc(ctx, trackIDs)
	}
	return []models.AudioFeatures{}, nil
}

func (m *MockCatalog) GetRecommendations(ctx context.Context, seedArtists, seedGenres []string, profile moods.Profile) ([]models.Track, error) {
	m.record("GetRecommendations")
	if m.GetRecommendationsFunc != nil {
		return m.GetRecommendationsFunc(ctx, seedArtists, seedGenres, profile)
	}
	return []models.Track{}, nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	m.record(fmt.Sprintf("CreatePlaylist:%s", name))
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, userID, name, description)
	}
	return &models.Playlist{ID: "mock_playlist", Name: name, Description: description}, nil
}

func (m *MockCatalog) AddTracksToPlaylist(ctx context.Context, playlistID string, trackURIs []string) error {
	m.record(fmt.Sprintf("AddTracksToPlaylist:%s", playlistID))
	if m.AddTracksToPlaylistFunc != nil {
		return m.AddTracksToPlaylistFunc(ctx, playlistID, trackURIs)
	}
	return nil
}

func (m *MockCatalog) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	m.record("CurrentUser")
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return &services.SpotifyUser{ID: "mock_user", DisplayName: "Mock User"}, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// GetAuthURL satisfies [services.OAuthService].
func (m *MockCatalog) GetAuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

// GetOAuthConfig satisfies [services.OAuthService].
func (m *MockCatalog) GetOAuthConfig() *oauth2.Config {
	return &oauth2.Config{ClientID: "mock"}
}

// OAuthenticate satisfies [services.OAuthService].
func (m *MockCatalog) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	m.record("OAuthenticate")
	if m.OAuthenticateFunc != nil {
		return m.OAuthenticateFunc(ctx, token)
	}
	return nil
}

// AppAuthenticate mirrors the app-token flow on the real client.
func (m *MockCatalog) AppAuthenticate(ctx context.Context) error {
	m.record("AppAuthenticate")
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
