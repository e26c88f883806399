package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/services"
	"github.com/auralabs/moodmix/internal/shared"
)

// Generator defines the playlist generation operation.
type Generator interface {
	// Generate creates and populates a Spotify playlist from the request's
	// artist names, genre, and mood, acting on behalf of userID.
	Generate(ctx context.Context, progress chan<- ProgressUpdate, userID string, req models.GenerationRequest) (*models.GenerationResult, error)
}

// GenerateEngine implements [Generator] against a [services.Catalog].
type GenerateEngine struct {
	catalog services.Catalog
}

// NewGenerateEngine creates a new GenerateEngine with the provided catalog service.
func NewGenerateEngine(catalog services.Catalog) *GenerateEngine {
	return &GenerateEngine{catalog: catalog}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *GenerateEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Generate runs the full generation sequence.
//
// Unresolvable artist names are dropped and reported in the result rather
// than failing the run; a run with zero resolvable artists fails with
// [shared.ErrNoValidArtists]. Playlist creation and track addition mutate
// remote state and are not idempotent: a failure during track addition
// leaves the already-created playlist in place.
func (e *GenerateEngine) Generate(ctx context.Context, progress chan<- ProgressUpdate, userID string, req models.GenerationRequest) (*models.GenerationResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	if len(req.ArtistNames) == 0 {
		return nil, fmt.Errorf("%w: at least one artist name is required", shared.ErrInvalidInput)
	}

	e.sendProgress(progress, resolveArtistsUpdate(0, len(req.ArtistNames), ""))

	artists, dropped, err := e.resolveArtists(ctx, progress, req.ArtistNames)
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return nil, fmt.Errorf("%w: none of %d artist names matched the catalog", shared.ErrNoValidArtists, len(req.ArtistNames))
	}

	e.sendProgress(progress, fetchTopTracksUpdate(0, len(artists)))

	topTracks, err := e.gatherTopTracks(ctx, artists)
	if err != nil {
		return nil, err
	}

	// Audio features are informational in the current design; they are
	// fetched for the whole candidate set but do not gate inclusion.
	trackIDs := make([]string, 0, len(topTracks))
	for _, track := range topTracks {
		trackIDs = append(trackIDs, track.ID)
	}

	e.sendProgress(progress, fetchFeaturesUpdate(len(trackIDs)))

	if _, err := e.catalog.GetAudioFeatures(ctx, trackIDs); err != nil {
		return nil, err
	}

	profile, recognized := moods.Parameters(req.Mood)
	if !recognized {
		e.sendProgress(progress, moodFallbackUpdate(req.Mood))
	}

	e.sendProgress(progress, fetchRecommendationsUpdate(req.Mood, req.Genre))

	seedArtists := make([]string, 0, len(artists))
	for _, artist := range artists {
		seedArtists = append(seedArtists, artist.ID)
	}

	recommended, err := e.catalog.GetRecommendations(ctx, seedArtists, []string{strings.ToLower(req.Genre)}, profile)
	if err != nil {
		return nil, err
	}

	// Top tracks first, then recommendations; first occurrence of a track
	// id wins, order is otherwise insertion order.
	unique := dedupeTracks(append(topTracks, recommended...))

	name := fmt.Sprintf("%s %s Mix", req.Mood, req.Genre)
	description := fmt.Sprintf(
		"A %s %s playlist generated based on your preferences and favorite artists",
		strings.ToLower(req.Mood), strings.ToLower(req.Genre),
	)

	e.sendProgress(progress, createPlaylistUpdate(name))

	playlist, err := e.catalog.CreatePlaylist(ctx, userID, name, description)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, addTracksUpdate(len(unique), playlist.Name))

	uris := make([]string, 0, len(unique))
	for _, track := range unique {
		uris = append(uris, track.URI)
	}

	if err := e.catalog.AddTracksToPlaylist(ctx, playlist.ID, uris); err != nil {
		// The playlist already exists remotely; no compensating delete.
		return nil, fmt.Errorf("playlist %s created but track addition failed: %w", playlist.ID, err)
	}

	result := &models.GenerationResult{
		Playlist:       *playlist,
		Tracks:         summarizeTracks(unique),
		DroppedArtists: dropped,
	}

	e.sendProgress(progress, completedUpdate(playlist, len(unique)))

	return result, nil
}

// resolveArtists concurrently resolves artist names to catalog identities,
// preserving input order. Names with no match are returned as dropped.
func (e *GenerateEngine) resolveArtists(ctx context.Context, progress chan<- ProgressUpdate, names []string) ([]models.Artist, []string, error) {
	resolved := make([]*models.Artist, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, query string) {
			defer wg.Done()

			matches, err := e.catalog.SearchArtists(ctx, query, 1)
			if err != nil {
				errs[idx] = err
				return
			}
			if len(matches) > 0 {
				resolved[idx] = &matches[0]
			}
		}(i, name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}

	var artists []models.Artist
	var dropped []string
	for i, artist := range resolved {
		if artist == nil {
			dropped = append(dropped, names[i])
			continue
		}
		artists = append(artists, *artist)
		e.sendProgress(progress, resolveArtistsUpdate(len(artists), len(names), artist.Name))
	}

	return artists, dropped, nil
}

// gatherTopTracks concurrently fetches top tracks for every artist and
// flattens them in artist order, keeping the catalog's per-artist order.
func (e *GenerateEngine) gatherTopTracks(ctx context.Context, artists []models.Artist) ([]models.Track, error) {
	results := make([][]models.Track, len(artists))
	errs := make([]error, len(artists))

	var wg sync.WaitGroup
	for i, artist := range artists {
		wg.Add(1)
		go func(idx int, artistID string) {
			defer wg.Done()

			tracks, err := e.catalog.GetTopTracks(ctx, artistID)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = tracks
		}(i, artist.ID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var flattened []models.Track
	for _, tracks := range results {
		flattened = append(flattened, tracks...)
	}
	return flattened, nil
}

// dedupeTracks removes duplicate track ids, keeping the first occurrence.
func dedupeTracks(tracks []models.Track) []models.Track {
	seen := make(map[string]struct{}, len(tracks))
	unique := make([]models.Track, 0, len(tracks))

	for _, track := range tracks {
		if _, ok := seen[track.ID]; ok {
			continue
		}
		seen[track.ID] = struct{}{}
		unique = append(unique, track)
	}

	return unique
}

// summarizeTracks builds the simplified per-track view for callers.
func summarizeTracks(tracks []models.Track) []models.TrackSummary {
	summaries := make([]models.TrackSummary, 0, len(tracks))
	for _, track := range tracks {
		summary := models.TrackSummary{
			Name:  track.Name,
			Album: track.Album.Name,
			URL:   track.ExternalURL,
		}
		if len(track.Artists) > 0 {
			summary.Artist = track.Artists[0].Name
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
