// package formatter provides functions to render generation results in various formats (Markdown, plain text, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/auralabs/moodmix/internal/models"
)

// ResultToText converts a GenerationResult to plain text format
func ResultToText(result *models.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist.Name))
	if result.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", result.Playlist.Description))
	}
	if result.Playlist.ExternalURL != "" {
		buf.WriteString(fmt.Sprintf("URL: %s\n", result.Playlist.ExternalURL))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", len(result.Tracks)))

	if len(result.DroppedArtists) > 0 {
		buf.WriteString(fmt.Sprintf("Unresolved artists: %d\n", len(result.DroppedArtists)))
		for _, name := range result.DroppedArtists {
			buf.WriteString(fmt.Sprintf("  - %s\n", name))
		}
	}

	buf.WriteString("\n")
	for i, track := range result.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Name))
	}

	return buf.Bytes(), nil
}

// ResultToMarkdown converts a GenerationResult to Markdown format
func ResultToMarkdown(result *models.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", result.Playlist.Name))

	if result.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", result.Playlist.Description))
	}
	if result.Playlist.ExternalURL != "" {
		buf.WriteString(fmt.Sprintf("**Listen**: [Open on Spotify](%s)\n\n", result.Playlist.ExternalURL))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(result.Tracks)))

	if len(result.DroppedArtists) > 0 {
		buf.WriteString("**Unresolved artists**: ")
		for i, name := range result.DroppedArtists {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(name)
		}
		buf.WriteString("\n\n")
	}

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		if track.URL != "" {
			buf.WriteString(fmt.Sprintf("%d. [%s - %s](%s)%s\n", i+1, track.Artist, track.Name, track.URL, albumPart))
		} else {
			buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Name, albumPart))
		}
	}

	return buf.Bytes(), nil
}

// ResultToCSV converts a GenerationResult to CSV format with columns: #, Name, Artist, Album, URL
func ResultToCSV(result *models.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"#", "Name", "Artist", "Album", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Name,
			track.Artist,
			track.Album,
			track.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteResult renders the result in the requested format and writes it to path.
// Supported formats: text, markdown, csv.
func WriteResult(result *models.GenerationResult, format, path string) error {
	var data []byte
	var err error

	switch format {
	case "markdown", "md":
		data, err = ResultToMarkdown(result)
	case "csv":
		data, err = ResultToCSV(result)
	default:
		data, err = ResultToText(result)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}

	return nil
}
