// package services defines interface Catalog for interacting with the Spotify Web API
package services

import (
	"context"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"golang.org/x/oauth2"
)

// Catalog defines the interface for the music catalog service consumed by
// playlist generation. Each operation takes a context and returns typed
// results or a [*CatalogError] for non-2xx provider responses.
type Catalog interface {
	// Authenticate performs OAuth or client-credential authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// SearchArtists searches the catalog for artists matching the query.
	// limit is clamped to 1-5 results.
	SearchArtists(ctx context.Context, query string, limit int) ([]models.Artist, error)

	// GetArtist retrieves a single artist by ID.
	GetArtist(ctx context.Context, artistID string) (*models.Artist, error)

	// GetTopTracks retrieves an artist's top tracks, scoped to the configured market.
	GetTopTracks(ctx context.Context, artistID string) ([]models.Track, error)

	// GetAudioFeatures retrieves audio features for the given track IDs.
	// Requests are chunked at 100 IDs and issued concurrently.
	GetAudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error)

	// GetRecommendations retrieves recommended tracks biased by the seeds and mood profile.
	GetRecommendations(ctx context.Context, seedArtists, seedGenres []string, profile moods.Profile) ([]models.Track, error)

	// CreatePlaylist creates a private playlist for the user.
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error)

	// AddTracksToPlaylist adds track URIs to a playlist.
	// URIs are chunked at 100 per request and chunks are issued concurrently.
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackURIs []string) error

	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService is implemented by services that support the OAuth2
// authorization code flow for user-scoped access.
type OAuthService interface {
	Catalog

	// GetAuthURL returns the provider authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying OAuth2 configuration for callback handling.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with a previously obtained token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
