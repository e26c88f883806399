package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// newTestService creates a SpotifyService pointed at a test server, already authenticated.
func newTestService(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client",
		"client_secret": "test_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	svc.baseURL = server.URL
	svc.token = &oauth2.Token{AccessToken: "test_token"}
	svc.httpClient = server.Client()
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	svc.SetRetryPolicy(1, time.Millisecond)

	return svc, server
}

func TestNewSpotifyService(t *testing.T) {
	tests := []struct {
		name        string
		credentials map[string]string
		wantErr     bool
	}{
		{
			name: "valid credentials",
			credentials: map[string]string{
				"client_id":     "id",
				"client_secret": "secret",
			},
		},
		{
			name: "missing client_id",
			credentials: map[string]string{
				"client_secret": "secret",
			},
			wantErr: true,
		},
		{
			name: "missing client_secret",
			credentials: map[string]string{
				"client_id": "id",
			},
			wantErr: true,
		},
		{
			name:        "empty credentials",
			credentials: map[string]string{},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewSpotifyService(tt.credentials)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.market != defaultMarket {
				t.Errorf("market = %s, want %s", svc.market, defaultMarket)
			}
			if svc.config.RedirectURL == "" {
				t.Error("redirect URL should default")
			}
		})
	}
}

func TestSearchArtists(t *testing.T) {
	t.Run("parses results and clamps limit", func(t *testing.T) {
		var gotLimit string
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotLimit = r.URL.Query().Get("limit")
			json.NewEncoder(w).Encode(searchResponse{
				Artists: struct {
					Items []SpotifyArtist `json:"items"`
				}{Items: []SpotifyArtist{{ID: "a1", Name: "Radiohead", Genres: []string{"art rock", "alternative"}}}},
			})
		})

		artists, err := svc.SearchArtists(context.Background(), "Radiohead", 50)
		if err != nil {
			t.Fatalf("SearchArtists failed: %v", err)
		}
		if gotLimit != "5" {
			t.Errorf("limit = %s, want clamped to 5", gotLimit)
		}
		if len(artists) != 1 || artists[0].Name != "Radiohead" {
			t.Errorf("artists = %v", artists)
		}
		if len(artists[0].Genres) != 2 || artists[0].Genres[0] != "art rock" {
			t.Errorf("genres = %v", artists[0].Genres)
		}
	})

	t.Run("rejects empty query", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := svc.SearchArtists(context.Background(), "  ", 5); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		svc.token = nil
		if _, err := svc.SearchArtists(context.Background(), "query", 5); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestGetArtist(t *testing.T) {
	var gotPath string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(SpotifyArtist{ID: "a1", Name: "Radiohead", Genres: []string{"art rock"}})
	})

	artist, err := svc.GetArtist(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetArtist failed: %v", err)
	}
	if gotPath != "/artists/a1" {
		t.Errorf("path = %s", gotPath)
	}
	if artist.ID != "a1" || artist.Name != "Radiohead" {
		t.Errorf("artist = %+v", artist)
	}
	if len(artist.Genres) != 1 || artist.Genres[0] != "art rock" {
		t.Errorf("genres = %v", artist.Genres)
	}
}

func TestGetTopTracksMarket(t *testing.T) {
	var gotMarket string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotMarket = r.URL.Query().Get("market")
		json.NewEncoder(w).Encode(topTracksResponse{
			Tracks: []SpotifyTrack{{ID: "t1", Name: "Song", URI: "spotify:track:t1"}},
		})
	})

	tracks, err := svc.GetTopTracks(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetTopTracks failed: %v", err)
	}
	if gotMarket != defaultMarket {
		t.Errorf("market = %s, want %s", gotMarket, defaultMarket)
	}
	if len(tracks) != 1 || tracks[0].URI != "spotify:track:t1" {
		t.Errorf("tracks = %v", tracks)
	}
}

func TestGetAudioFeaturesChunking(t *testing.T) {
	var mu sync.Mutex
	var chunkSizes []int

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("ids")
		count := 1
		for _, c := range ids {
			if c == ',' {
				count++
			}
		}
		mu.Lock()
		chunkSizes = append(chunkSizes, count)
		mu.Unlock()

		features := make([]SpotifyAudioFeatures, count)
		json.NewEncoder(w).Encode(audioFeaturesResponse{AudioFeatures: features})
	})

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("track%03d", i)
	}

	features, err := svc.GetAudioFeatures(context.Background(), ids)
	if err != nil {
		t.Fatalf("GetAudioFeatures failed: %v", err)
	}

	if len(features) != 250 {
		t.Errorf("got %d features, want 250", len(features))
	}

	sort.Ints(chunkSizes)
	want := []int{50, 100, 100}
	if len(chunkSizes) != 3 {
		t.Fatalf("got %d requests, want 3: %v", len(chunkSizes), chunkSizes)
	}
	for i, size := range want {
		if chunkSizes[i] != size {
			t.Errorf("chunk sizes = %v, want %v", chunkSizes, want)
			break
		}
	}
}

func TestGetAudioFeaturesEmpty(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	features, err := svc.GetAudioFeatures(context.Background(), nil)
	if err != nil || features != nil {
		t.Errorf("expected nil, nil; got %v, %v", features, err)
	}
}

func TestGetRecommendations(t *testing.T) {
	var gotQuery map[string]string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key, values := range r.URL.Query() {
			gotQuery[key] = values[0]
		}
		json.NewEncoder(w).Encode(recommendationsResponse{
			Tracks: []SpotifyTrack{{ID: "r1", Name: "Rec", URI: "spotify:track:r1"}},
		})
	})

	profile := moods.Profile{Valence: 0.8, Energy: 0.9, Danceability: 0.9}
	tracks, err := svc.GetRecommendations(context.Background(), []string{"a1", "a2"}, []string{"pop"}, profile)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("tracks = %v", tracks)
	}

	if gotQuery["seed_artists"] != "a1,a2" {
		t.Errorf("seed_artists = %s", gotQuery["seed_artists"])
	}
	if gotQuery["seed_genres"] != "pop" {
		t.Errorf("seed_genres = %s", gotQuery["seed_genres"])
	}
	if gotQuery["limit"] != "50" {
		t.Errorf("limit = %s, want 50", gotQuery["limit"])
	}
	if gotQuery["target_valence"] != "0.8" {
		t.Errorf("target_valence = %s", gotQuery["target_valence"])
	}
	if gotQuery["target_energy"] != "0.9" {
		t.Errorf("target_energy = %s", gotQuery["target_energy"])
	}
	if _, ok := gotQuery["target_tempo"]; ok {
		t.Error("unset tempo should not be sent")
	}
}

func TestCreatePlaylist(t *testing.T) {
	t.Run("creates private playlist", func(t *testing.T) {
		var gotPublicRaw map[string]any
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotPublicRaw)

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(SpotifyPlaylist{
				ID:           "pl1",
				Name:         fmt.Sprint(gotPublicRaw["name"]),
				ExternalURLs: externalURLs{Spotify: "https://open.spotify.com/playlist/pl1"},
			})
		})

		playlist, err := svc.CreatePlaylist(context.Background(), "user1", "Party Pop Mix", "desc")
		if err != nil {
			t.Fatalf("CreatePlaylist failed: %v", err)
		}

		if public, ok := gotPublicRaw["public"].(bool); !ok || public {
			t.Errorf("public = %v, want explicit false", gotPublicRaw["public"])
		}
		if playlist.ID != "pl1" || playlist.ExternalURL == "" {
			t.Errorf("playlist = %+v", playlist)
		}
	})

	t.Run("requires user id", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := svc.CreatePlaylist(context.Background(), "", "name", ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("normalizes provider errors", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"status":403,"message":"Insufficient client scope"}}`)
		})

		_, err := svc.CreatePlaylist(context.Background(), "user1", "name", "")
		var catErr *CatalogError
		if !errors.As(err, &catErr) {
			t.Fatalf("expected CatalogError, got %v", err)
		}
		if catErr.StatusCode != http.StatusForbidden || catErr.Message != "Insufficient client scope" {
			t.Errorf("catErr = %+v", catErr)
		}
	})
}

func TestAddTracksToPlaylistChunking(t *testing.T) {
	var mu sync.Mutex
	var chunkSizes []int

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var body addTracksRequest
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		chunkSizes = append(chunkSizes, len(body.URIs))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"snapshot_id":"snap"}`)
	})

	uris := make([]string, 250)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:%03d", i)
	}

	if err := svc.AddTracksToPlaylist(context.Background(), "pl1", uris); err != nil {
		t.Fatalf("AddTracksToPlaylist failed: %v", err)
	}

	sort.Ints(chunkSizes)
	want := []int{50, 100, 100}
	if len(chunkSizes) != 3 {
		t.Fatalf("got %d requests, want 3", len(chunkSizes))
	}
	for i, size := range want {
		if chunkSizes[i] != size {
			t.Errorf("chunk sizes = %v, want %v", chunkSizes, want)
			break
		}
	}
}

func TestAddTracksToPlaylistEmpty(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	if err := svc.AddTracksToPlaylist(context.Background(), "pl1", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"status":429,"message":"rate limited"}}`)
			return
		}
		json.NewEncoder(w).Encode(recommendationsResponse{})
	})
	svc.SetRetryPolicy(3, time.Millisecond)

	_, err := svc.GetRecommendations(context.Background(), []string{"a1"}, []string{"pop"}, moods.Profile{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestChunkStrings(t *testing.T) {
	tests := []struct {
		name  string
		items int
		size  int
		want  []int
	}{
		{"empty", 0, 100, nil},
		{"under one chunk", 42, 100, []int{42}},
		{"exact chunk", 100, 100, []int{100}},
		{"multiple chunks", 250, 100, []int{100, 100, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]string, tt.items)
			chunks := chunkStrings(items, tt.size)
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}
			for i, chunk := range chunks {
				if len(chunk) != tt.want[i] {
					t.Errorf("chunk %d has %d items, want %d", i, len(chunk), tt.want[i])
				}
			}
		})
	}
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("invokes callback on token change", func(t *testing.T) {
		tokens := []*oauth2.Token{
			{AccessToken: "first"},
			{AccessToken: "first"},
			{AccessToken: "second"},
		}
		idx := 0
		var seen []string

		source := &refreshableTokenSource{
			source: tokenSourceFunc(func() (*oauth2.Token, error) {
				token := tokens[idx]
				if idx < len(tokens)-1 {
					idx++
				}
				return token, nil
			}),
			callback: func(token *oauth2.Token) {
				seen = append(seen, token.AccessToken)
			},
		}

		for range tokens {
			if _, err := source.Token(); err != nil {
				t.Fatalf("Token failed: %v", err)
			}
		}

		if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
			t.Errorf("callback saw %v, want [first second]", seen)
		}
	})

	t.Run("recovers from callback panic", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: tokenSourceFunc(func() (*oauth2.Token, error) {
				return &oauth2.Token{AccessToken: "token"}, nil
			}),
			callback: func(token *oauth2.Token) {
				panic("callback exploded")
			},
		}

		token, err := source.Token()
		if err != nil || token.AccessToken != "token" {
			t.Errorf("token = %v, err = %v", token, err)
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: tokenSourceFunc(func() (*oauth2.Token, error) {
				return nil, fmt.Errorf("refresh failed")
			}),
		}
		if _, err := source.Token(); err == nil {
			t.Error("expected error from source")
		}
	})
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
