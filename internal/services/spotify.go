// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Per-request item limit enforced by the audio-features and
	// playlist-tracks endpoints.
	maxItemsPerRequest = 100

	defaultMarket         = "JP"
	defaultSearchLimit    = 1
	defaultRecommendLimit = 50
	defaultRetryBaseDelay = time.Second
	defaultRateLimit      = 5.0
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyAudioFeatures represents the audio descriptors of a track.
type SpotifyAudioFeatures struct {
	ID           string  `json:"id"`
	Valence      float64 `json:"valence"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Tempo        float64 `json:"tempo"`
	Acousticness float64 `json:"acousticness"`
	Liveness     float64 `json:"liveness"`
	Speechiness  float64 `json:"speechiness"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type searchResponse struct {
	Artists struct {
		Items []SpotifyArtist `json:"items"`
	} `json:"artists"`
}

type topTracksResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

type audioFeaturesResponse struct {
	AudioFeatures []SpotifyAudioFeatures `json:"audio_features"`
}

type recommendationsResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

// SpotifyService implements the [Catalog] interface for Spotify API interactions.
// Uses [oauth2] for authentication and provides methods for search, recommendation, and playlist operations.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	credentials    map[string]string
	baseURL        string
	market         string
	searchLimit    int
	recommendLimit int
	maxAttempts    int
	baseDelay      time.Duration
	limiter        *rate.Limiter
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	market, ok := credentials["market"]
	if !ok || market == "" {
		market = defaultMarket
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:         config,
		httpClient:     http.DefaultClient,
		credentials:    credentials,
		baseURL:        spotifyBaseURL,
		market:         market,
		searchLimit:    defaultSearchLimit,
		recommendLimit: defaultRecommendLimit,
		maxAttempts:    defaultMaxAttempts,
		baseDelay:      defaultRetryBaseDelay,
		limiter:        rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}, nil
}

// SetRetryPolicy overrides the retry attempt count and linear backoff base delay.
func (s *SpotifyService) SetRetryPolicy(maxAttempts int, baseDelay time.Duration) {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		s.baseDelay = baseDelay
	}
}

// SetLimits overrides the per-artist search result limit and the recommendation track limit.
func (s *SpotifyService) SetLimits(searchLimit, recommendLimit int) {
	if searchLimit > 0 {
		s.searchLimit = searchLimit
	}
	if recommendLimit > 0 {
		s.recommendLimit = recommendLimit
	}
}

// SetRateLimit overrides the client-side request throttle (requests per second).
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// SetTokenRefreshCallback registers a callback invoked whenever the
// underlying token source produces a new token, so callers can persist it.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 configuration for callback handling.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{AccessToken: accessToken}
		if refreshToken, ok := credentials["refresh_token"]; ok && refreshToken != "" {
			token.RefreshToken = refreshToken
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate authenticates with a previously obtained user token.
//
// The token source refreshes transparently; refreshed tokens are reported
// through the registered callback.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidCredentials)
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
	}
	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

// AppAuthenticate obtains an app-level token via the client-credentials flow.
//
// App tokens suit read-only catalog lookups; playlist mutation requires a
// user-scoped token obtained through Authenticate or OAuthenticate.
func (s *SpotifyService) AppAuthenticate(ctx context.Context) error {
	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}

	token, err := cc.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: client credentials exchange: %v", shared.ErrAuthFailed, err)
	}

	s.token = token
	s.httpClient = oauth2.NewClient(ctx, &refreshableTokenSource{
		source:   cc.TokenSource(ctx),
		callback: s.onTokenRefresh,
	})
	return nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the produced token changes, e.g. after a transparent refresh.
type refreshableTokenSource struct {
	source    oauth2.TokenSource
	callback  func(*oauth2.Token)
	mu        sync.Mutex
	lastToken string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.lastToken
	if changed {
		r.lastToken = token.AccessToken
	}
	r.mu.Unlock()

	if changed && r.callback != nil {
		func() {
			defer func() { _ = recover() }()
			r.callback(token)
		}()
	}

	return token, nil
}

// doRequest performs an authenticated, rate-limited HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := s.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newCatalogError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchArtists searches for artists matching the query. limit is clamped to 1-5.
func (s *SpotifyService) SearchArtists(ctx context.Context, query string, limit int) ([]models.Artist, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.searchLimit
	}
	if limit > 5 {
		limit = 5
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=artist&limit=%d", url.QueryEscape(query), limit)

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists.Items))
	for _, item := range response.Artists.Items {
		artists = append(artists, models.Artist{ID: item.ID, Name: item.Name, Genres: item.Genres})
	}
	return artists, nil
}

// GetArtist retrieves a single artist by ID.
func (s *SpotifyService) GetArtist(ctx context.Context, artistID string) (*models.Artist, error) {
	var artist SpotifyArtist
	endpoint := fmt.Sprintf("/artists/%s", artistID)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &artist); err != nil {
		return nil, err
	}
	return &models.Artist{ID: artist.ID, Name: artist.Name, Genres: artist.Genres}, nil
}

// GetTopTracks retrieves an artist's top tracks scoped to the configured market.
func (s *SpotifyService) GetTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=%s", artistID, url.QueryEscape(s.market))

	var response topTracksResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return mapTracks(response.Tracks), nil
}

// GetAudioFeatures retrieves audio features for the given track IDs.
//
// IDs are chunked at 100 per request; chunks are fetched concurrently and
// flattened in chunk order.
func (s *SpotifyService) GetAudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}

	chunks := chunkStrings(trackIDs, maxItemsPerRequest)
	results := make([][]models.AudioFeatures, len(chunks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, chunk := range chunks {
		wg.Add(1)
		go func(idx int, ids []string) {
			defer wg.Done()

			features, err := withRetry(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) ([]models.AudioFeatures, error) {
				endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(strings.Join(ids, ",")))

				var response audioFeaturesResponse
				if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
					return nil, err
				}

				mapped := make([]models.AudioFeatures, 0, len(response.AudioFeatures))
				for _, f := range response.AudioFeatures {
					mapped = append(mapped, models.AudioFeatures{
						TrackID:      f.ID,
						Valence:      f.Valence,
						Energy:       f.Energy,
						Danceability: f.Danceability,
						Tempo:        f.Tempo,
						Acousticness: f.Acousticness,
						Liveness:     f.Liveness,
						Speechiness:  f.Speechiness,
					})
				}
				return mapped, nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[idx] = features
		}(i, chunk)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var flattened []models.AudioFeatures
	for _, chunk := range results {
		flattened = append(flattened, chunk...)
	}
	return flattened, nil
}

// GetRecommendations retrieves recommended tracks seeded with artists and
// genres, biased by the mood profile's target parameters.
func (s *SpotifyService) GetRecommendations(ctx context.Context, seedArtists, seedGenres []string, profile moods.Profile) ([]models.Track, error) {
	return withRetry(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) ([]models.Track, error) {
		query := url.Values{}
		query.Set("seed_artists", strings.Join(seedArtists, ","))
		query.Set("seed_genres", strings.Join(seedGenres, ","))
		query.Set("limit", strconv.Itoa(s.recommendLimit))

		params := profile.Params()
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			query.Set(key, strconv.FormatFloat(params[key], 'f', -1, 64))
		}

		endpoint := "/recommendations?" + query.Encode()

		var response recommendationsResponse
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		return mapTracks(response.Tracks), nil
	})
}

// CreatePlaylist creates a private playlist for the user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}

	return withRetry(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) (*models.Playlist, error) {
		endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
		body := createPlaylistRequest{Name: name, Description: description, Public: false}

		var response SpotifyPlaylist
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
			return nil, err
		}

		return &models.Playlist{
			ID:          response.ID,
			Name:        response.Name,
			Description: response.Description,
			ExternalURL: response.ExternalURLs.Spotify,
		}, nil
	})
}

// AddTracksToPlaylist adds track URIs to a playlist.
//
// URIs are chunked at 100 per request and chunks are issued concurrently;
// any chunk failure (after its own retries) fails the call.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, trackURIs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	if len(trackURIs) == 0 {
		return nil
	}

	chunks := chunkStrings(trackURIs, maxItemsPerRequest)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, chunk := range chunks {
		wg.Add(1)
		go func(uris []string) {
			defer wg.Done()

			_, err := withRetry(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) (struct{}, error) {
				endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
				body := addTracksRequest{URIs: uris}
				return struct{}{}, s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
			})

			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(chunk)
	}

	wg.Wait()
	return firstErr
}

// chunkStrings splits items into slices of at most size elements.
func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// mapTracks converts wire tracks to domain tracks.
func mapTracks(tracks []SpotifyTrack) []models.Track {
	mapped := make([]models.Track, 0, len(tracks))
	for _, track := range tracks {
		artists := make([]models.Artist, 0, len(track.Artists))
		for _, artist := range track.Artists {
			artists = append(artists, models.Artist{ID: artist.ID, Name: artist.Name})
		}

		images := make([]models.Image, 0, len(track.Album.Images))
		for _, image := range track.Album.Images {
			images = append(images, models.Image{URL: image.URL, Height: image.Height, Width: image.Width})
		}

		mapped = append(mapped, models.Track{
			ID:          track.ID,
			URI:         track.URI,
			Name:        track.Name,
			Artists:     artists,
			Album:       models.Album{Name: track.Album.Name, Images: images},
			ExternalURL: track.ExternalURLs.Spotify,
		})
	}
	return mapped
}
