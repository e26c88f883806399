package main

import (
	"context"
	"fmt"
	"os"

	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/repositories"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Moods lists the available mood names and their audio profiles.
func (r *Runner) Moods(ctx context.Context, cmd *cli.Command) error {
	names := moods.Names()

	if cmd.Bool("json") {
		profiles := make(map[string]moods.Profile, len(names))
		for _, name := range names {
			profile, _ := moods.Parameters(name)
			profiles[name] = profile
		}
		return r.writeJSON(profiles, true)
	}

	r.writePlain("Available moods:\n\n")
	for _, name := range names {
		profile, _ := moods.Parameters(name)
		r.writePlain("  %-12s", name)
		if profile.Valence > 0 {
			r.writePlain(" valence=%.1f", profile.Valence)
		}
		if profile.Energy > 0 {
			r.writePlain(" energy=%.1f", profile.Energy)
		}
		if profile.Danceability > 0 {
			r.writePlain(" danceability=%.1f", profile.Danceability)
		}
		if profile.Tempo > 0 {
			r.writePlain(" tempo=%.0f", profile.Tempo)
		}
		r.writePlain("\n")
	}

	return nil
}

// ArtistSearch searches the catalog for artists matching the query argument.
func (r *Runner) ArtistSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: a search query is required", shared.ErrMissingArgument)
	}

	if r.catalog == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	// Read-only lookup, an app-level token is enough.
	app, ok := r.catalog.(interface {
		AppAuthenticate(ctx context.Context) error
	})
	if !ok {
		return fmt.Errorf("%w: catalog does not support app authentication", shared.ErrServiceUnavailable)
	}
	if err := app.AppAuthenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	limit := int(cmd.Int("limit"))
	artists, err := r.catalog.SearchArtists(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(artists, true)
	}

	if len(artists) == 0 {
		r.writePlain("No artists found for %q\n", query)
		return nil
	}

	r.writePlain("Found %d artists:\n\n", len(artists))
	for i, artist := range artists {
		r.writePlain("%d. %s\n", i+1, artist.Name)
		r.writePlain("   ID: %s\n", artist.ID)
		if len(artist.Genres) > 0 {
			r.writePlain("   Genres: %v\n", artist.Genres)
		}
		r.writePlain("\n")
	}

	return nil
}

// ArtistGet shows an artist's details and top tracks, the pre-generation preview.
func (r *Runner) ArtistGet(ctx context.Context, cmd *cli.Command) error {
	artistID := cmd.StringArg("id")
	if artistID == "" {
		return fmt.Errorf("%w: an artist id is required", shared.ErrMissingArgument)
	}

	if r.catalog == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	app, ok := r.catalog.(interface {
		AppAuthenticate(ctx context.Context) error
	})
	if !ok {
		return fmt.Errorf("%w: catalog does not support app authentication", shared.ErrServiceUnavailable)
	}
	if err := app.AppAuthenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	artist, err := r.catalog.GetArtist(ctx, artistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	tracks, err := r.catalog.GetTopTracks(ctx, artistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"artist": artist, "top_tracks": tracks}, true)
	}

	r.writePlain("%s (%s)\n\n", artist.Name, artist.ID)
	if len(tracks) == 0 {
		r.writePlain("No top tracks available.\n")
		return nil
	}

	r.writePlain("Top tracks:\n")
	for i, track := range tracks {
		r.writePlain("%d. %s", i+1, track.Name)
		if track.Album.Name != "" {
			r.writePlain(" (%s)", track.Album.Name)
		}
		r.writePlain("\n")
	}

	return nil
}

// History lists previously generated playlists from the local database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("%w: run 'moodmix setup database' first", shared.ErrMissingConfig)
		}
		var err error
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewGenerationRepository(db)
	generations, err := repo.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list generations: %w", err)
	}

	if cmd.Bool("json") {
		entries := make([]map[string]any, 0, len(generations))
		for _, g := range generations {
			entries = append(entries, map[string]any{
				"playlist_id":   g.PlaylistID(),
				"playlist_name": g.PlaylistName(),
				"playlist_url":  g.PlaylistURL(),
				"mood":          g.Mood(),
				"genre":         g.Genre(),
				"artist_names":  g.ArtistNames(),
				"track_count":   g.TrackCount(),
				"created_at":    g.CreatedAt(),
			})
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(generations) == 0 {
		r.writePlain("No playlists generated yet. Run 'moodmix generate' to create one.\n")
		return nil
	}

	r.writePlain("Generated playlists (%d):\n\n", len(generations))
	for i, g := range generations {
		r.writePlain("%d. %s\n", i+1, g.PlaylistName())
		r.writePlain("   Mood: %s  Genre: %s  Tracks: %d\n", g.Mood(), g.Genre(), g.TrackCount())
		r.writePlain("   Artists: %v\n", g.ArtistNames())
		if g.PlaylistURL() != "" {
			r.writePlain("   URL: %s\n", g.PlaylistURL())
		}
		r.writePlain("   Created: %s\n\n", g.CreatedAt().Format("2006-01-02 15:04"))
	}

	return nil
}
