package models

import (
	"fmt"
	"strings"
	"time"
)

// base provides common fields and Model plumbing for persistent entities.
type base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newBase(sequence int) base {
	now := time.Now()
	return base{sequence: sequence, createdAt: now, updatedAt: now}
}

func (b *base) ID() string                  { return b.id }
func (b *base) Sequence() int               { return b.sequence }
func (b *base) CreatedAt() time.Time        { return b.createdAt }
func (b *base) UpdatedAt() time.Time        { return b.updatedAt }
func (b *base) DeletedAt() *time.Time       { return b.deletedAt }
func (b *base) SetID(id string) { b.id = id }
func (b *base) SetCreatedAt(t time.Time) { b.createdAt = t }
func (b *base) SetUpdatedAt(t time.Time) { b.updatedAt = t }
func (b *base) SetDeletedAt(t *time.Time) { b.deletedAt = t }

// Session represents a signed-in Spotify user's stored tokens.
//
// It is the server-side session store the generation flow reads user-scoped
// credentials from: playlist creation acts on behalf of this user.
type Session struct {
	base
	userID       string
	displayName  string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
}

// NewSession creates a session for the given Spotify user.
func NewSession(sequence int, userID, displayName, accessToken, refreshToken string, expiry time.Time) *Session {
	return &Session{
		base:         newBase(sequence),
		userID:       userID,
		displayName:  displayName,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		tokenExpiry:  expiry,
	}
}

func (s *Session) UserID() string          { return s.userID }
func (s *Session) DisplayName() string     { return s.displayName }
func (s *Session) AccessToken() string     { return s.accessToken }
func (s *Session) RefreshToken() string    { return s.refreshToken }
func (s *Session) TokenExpiry() time.Time  { return s.tokenExpiry }

// SetTokens replaces the stored tokens after a refresh.
func (s *Session) SetTokens(accessToken, refreshToken string, expiry time.Time) {
	s.accessToken = accessToken
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	s.tokenExpiry = expiry
}

// Expired reports whether the stored access token is past its expiry.
func (s *Session) Expired() bool {
	return !s.tokenExpiry.IsZero() && time.Now().After(s.tokenExpiry)
}

// Validate checks required session fields.
func (s *Session) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("session requires a user id")
	}
	if s.accessToken == "" {
		return fmt.Errorf("session requires an access token")
	}
	return nil
}

// Generation records one completed playlist generation run.
type Generation struct {
	base
	userID       string
	playlistID   string
	playlistName string
	playlistURL  string
	mood         string
	genre        string
	artistNames  []string
	trackCount   int
}

// NewGeneration creates a generation record for a created playlist.
func NewGeneration(sequence int, userID string, playlist Playlist, mood, genre string, artistNames []string, trackCount int) *Generation {
	return &Generation{
		base:         newBase(sequence),
		userID:       userID,
		playlistID:   playlist.ID,
		playlistName: playlist.Name,
		playlistURL:  playlist.ExternalURL,
		mood:         mood,
		genre:        genre,
		artistNames:  artistNames,
		trackCount:   trackCount,
	}
}

func (g *Generation) UserID() string        { return g.userID }
func (g *Generation) PlaylistID() string    { return g.playlistID }
func (g *Generation) PlaylistName() string  { return g.playlistName }
func (g *Generation) PlaylistURL() string   { return g.playlistURL }
func (g *Generation) Mood() string          { return g.mood }
func (g *Generation) Genre() string         { return g.genre }
func (g *Generation) ArtistNames() []string { return g.artistNames }
func (g *Generation) TrackCount() int       { return g.trackCount }

// SetArtistNames replaces the recorded artist names (used when loading from storage).
func (g *Generation) SetArtistNames(names []string) { g.artistNames = names }

// JoinedArtistNames returns the artist names as a comma-separated string for storage.
func (g *Generation) JoinedArtistNames() string {
	return strings.Join(g.artistNames, ",")
}

// Validate checks required generation fields.
func (g *Generation) Validate() error {
	if g.userID == "" {
		return fmt.Errorf("generation requires a user id")
	}
	if g.playlistID == "" {
		return fmt.Errorf("generation requires a playlist id")
	}
	if g.mood == "" || g.genre == "" {
		return fmt.Errorf("generation requires mood and genre")
	}
	return nil
}
