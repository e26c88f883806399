package main

import (
	"context"
	"fmt"
	"os"

	"github.com/auralabs/moodmix/internal/formatter"
	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/repositories"
	"github.com/auralabs/moodmix/internal/services"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/auralabs/moodmix/internal/tasks"
	"github.com/auralabs/moodmix/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Generate creates and populates a playlist from the artist, genre, and mood flags.
//
// With --ui the interactive TUI workflow runs instead of the plain progress stream.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if r.catalog == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: generation engine not initialized", shared.ErrServiceUnavailable)
	}

	req := models.GenerationRequest{
		ArtistNames: cmd.StringSlice("artist"),
		Genre:       cmd.String("genre"),
		Mood:        cmd.String("mood"),
	}

	if req.Mood != "" {
		if _, ok := moods.Parameters(req.Mood); !ok {
			r.logger.Warn("unrecognized mood, the default profile will be used", "mood", req.Mood)
		}
	}

	userID, err := r.authenticateUser(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("ui") {
		return r.generateUI(ctx, userID, req)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := r.engine.Generate(ctx, progress, userID, req)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.recordGeneration(cmd, userID, req, result)

	if output := cmd.String("output"); output != "" {
		if err := formatter.WriteResult(result, cmd.String("format"), output); err != nil {
			return err
		}
		r.writePlain("✓ Result written to %s\n", output)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainln("✓ Playlist created: %s", result.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(result.Tracks))
	if result.Playlist.ExternalURL != "" {
		r.writePlain("  URL: %s\n", result.Playlist.ExternalURL)
	}
	if len(result.DroppedArtists) > 0 {
		r.writePlain("\n⚠ Could not resolve %d artists:\n", len(result.DroppedArtists))
		for _, name := range result.DroppedArtists {
			r.writePlain("  - %s\n", name)
		}
	}

	return nil
}

// generateUI runs the interactive generation workflow.
func (r *Runner) generateUI(ctx context.Context, userID string, req models.GenerationRequest) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/moodmix-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.engine, userID, req)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result, runErr := model.Result(); runErr == nil && result != nil {
		r.writePlain("✓ Playlist created: %s (%d tracks)\n", result.Playlist.Name, len(result.Tracks))
	}

	return nil
}

// authenticateUser authenticates the catalog with stored tokens and resolves the user ID.
func (r *Runner) authenticateUser(ctx context.Context, cmd *cli.Command) (string, error) {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return "", fmt.Errorf("%w: run 'moodmix auth login' first", shared.ErrNotAuthenticated)
	}

	r.persistRefreshedTokens(cmd.String("config"))

	if err := r.catalog.OAuthenticate(ctx, token); err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}

	user, err := r.catalog.CurrentUser(ctx)
	if err != nil {
		if reauthed, authErr := r.handleAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return "", authErr
			}
			if user, err = r.catalog.CurrentUser(ctx); err != nil {
				return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	return user.ID, nil
}

// persistRefreshedTokens saves transparently refreshed tokens back to the config file.
func (r *Runner) persistRefreshedTokens(configPath string) {
	svc, ok := r.catalog.(*services.SpotifyService)
	if !ok {
		return
	}
	if configPath == "" {
		configPath = "config.toml"
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.config.Credentials.Spotify.Update(token); err != nil {
			return
		}
		if err := shared.SaveConfig(configPath, r.config); err != nil {
			r.logger.Warn("failed to persist refreshed tokens", "error", err)
		}
	})
}

// recordGeneration appends the run to the local history database, best-effort.
func (r *Runner) recordGeneration(cmd *cli.Command, userID string, req models.GenerationRequest, result *models.GenerationResult) {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		if _, err := os.Stat(configPath); err != nil {
			return
		}
		var err error
		if config, err = shared.LoadConfig(configPath); err != nil {
			return
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		r.logger.Warn("history database unavailable", "error", err)
		return
	}
	defer db.Close()

	repo := repositories.NewGenerationRepository(db)
	record := models.NewGeneration(0, userID, result.Playlist, req.Mood, req.Genre, req.ArtistNames, len(result.Tracks))
	if err := repo.Create(record); err != nil {
		r.logger.Warn("failed to record generation", "error", err)
	}
}
