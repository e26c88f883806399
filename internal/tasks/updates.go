package tasks

import (
	"fmt"

	"github.com/auralabs/moodmix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveArtists Phase = iota
	FetchTopTracks
	FetchFeatures
	FetchRecommendations
	CreatePlaylist
	AddTracks
	Completed
)

func (p Phase) String() string {
	switch p {
	case ResolveArtists:
		return "resolve_artists"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case FetchFeatures:
		return "fetch_features"
	case FetchRecommendations:
		return "fetch_recommendations"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func resolveArtistsUpdate(step, total int, name string) ProgressUpdate {
	update := ProgressUpdate{
		Phase:   ResolveArtists,
		Step:    step,
		Total:   total,
		Message: "Resolving artist names...",
	}
	if name != "" {
		update.Message = fmt.Sprintf("[%d/%d] Resolved: %s", step, total, name)
	}
	return update
}

func fetchTopTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTopTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching top tracks for %d artists...", total),
	}
}

func fetchFeaturesUpdate(trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", trackCount),
	}
}

func moodFallbackUpdate(mood string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Unknown mood %q, using default profile", mood),
	}
}

func fetchRecommendationsUpdate(mood, genre string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s %s recommendations...", mood, genre),
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist: %s", name),
	}
}

func addTracksUpdate(trackCount int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s...", trackCount, name),
	}
}

func completedUpdate(playlist *models.Playlist, trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (%d tracks)", playlist.Name, trackCount),
		Data:    playlist,
	}
}
