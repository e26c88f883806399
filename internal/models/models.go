// package models defines the data model for the moodmix playlist generation service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the moodmix service.
// Implementations include Session and Generation.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Artist represents a resolved Spotify artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Image represents an album or artist image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Album represents the album a track belongs to.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track represents a Spotify track. Identity is its ID, which is the
// deduplication key when merging candidate lists.
type Track struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	Album       Album    `json:"album"`
	ExternalURL string   `json:"external_url"`
}

// AudioFeatures represents the numeric audio descriptors of a single track.
type AudioFeatures struct {
	TrackID      string  `json:"id"`
	Valence      float64 `json:"valence"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Tempo        float64 `json:"tempo"`
	Acousticness float64 `json:"acousticness"`
	Liveness     float64 `json:"liveness"`
	Speechiness  float64 `json:"speechiness"`
}

// Playlist represents a created Spotify playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
}

// TrackSummary is the simplified per-track view returned to callers after generation.
type TrackSummary struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URL    string `json:"url"`
}

// GenerationRequest contains the user inputs for one playlist generation run.
//
// Artist names are kept in input order and may contain duplicates or misspellings;
// unresolvable names are dropped during generation, not treated as fatal.
type GenerationRequest struct {
	ArtistNames []string `json:"artist_names"`
	Genre       string   `json:"genre"`
	Mood        string   `json:"mood"`
}

// GenerationResult is the outcome of a playlist generation run.
//
// DroppedArtists lists the input names that did not resolve to a catalog
// artist, so callers can surface them instead of silently losing input.
type GenerationResult struct {
	Playlist       Playlist       `json:"playlist"`
	Tracks         []TrackSummary `json:"tracks"`
	DroppedArtists []string       `json:"dropped_artists,omitempty"`
}
