package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/auralabs/moodmix/internal/services"
	"github.com/auralabs/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var catalog services.OAuthService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			configureService(svc, config)
			catalog = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "moodmix",
		Usage:    "Generate mood-based Spotify playlists from your favorite artists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// configureService applies the generator tuning knobs from config to a Spotify service.
func configureService(svc *services.SpotifyService, config *shared.Config) {
	if config.Generator.RetryBaseDelayMS > 0 {
		svc.SetRetryPolicy(0, time.Duration(config.Generator.RetryBaseDelayMS)*time.Millisecond)
	}
	if config.Generator.RateLimit > 0 {
		svc.SetRateLimit(config.Generator.RateLimit)
	}
	if config.Generator.SearchLimit > 0 || config.Generator.RecommendLimit > 0 {
		svc.SetLimits(config.Generator.SearchLimit, config.Generator.RecommendLimit)
	}
}
