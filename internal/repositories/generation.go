package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/shared"
)

// GenerationRepository implements [models.Repository] for [models.Generation] persistence.
type GenerationRepository struct {
	db *sql.DB
}

// NewGenerationRepository creates a new [GenerationRepository] with the given database connection
func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create inserts a new generation record with generated ID and sequence
func (r *GenerationRepository) Create(generation *models.Generation) error {
	sequence, err := NextSequence(r.db, "generations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	generation.SetID(id)

	if err := generation.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO generations (id, sequence, user_id, playlist_id, playlist_name, playlist_url, mood, genre, artist_names, track_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, generation.UserID(), generation.PlaylistID(),
		generation.PlaylistName(), generation.PlaylistURL(), generation.Mood(), generation.Genre(),
		generation.JoinedArtistNames(), generation.TrackCount(),
		generation.CreatedAt(), generation.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	return nil
}

// Get retrieves a generation by ID, excluding soft-deleted records
func (r *GenerationRepository) Get(id string) (*models.Generation, error) {
	query := selectGenerations + ` WHERE id = ? AND deleted_at IS NULL`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation: %w", err)
	}
	defer rows.Close()

	generations, err := scanGenerations(rows)
	if err != nil {
		return nil, err
	}
	if len(generations) == 0 {
		return nil, fmt.Errorf("generation not found: %s", id)
	}

	return generations[0], nil
}

// Update modifies an existing generation record
func (r *GenerationRepository) Update(generation *models.Generation) error {
	if err := generation.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	generation.SetUpdatedAt(now)

	query := `
		UPDATE generations
		SET playlist_name = ?, playlist_url = ?, track_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, generation.PlaylistName(), generation.PlaylistURL(),
		generation.TrackCount(), now, generation.ID())
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("generation not found: %s", generation.ID())
	}

	return nil
}

// Delete soft-deletes a generation by setting deleted_at
func (r *GenerationRepository) Delete(id string) error {
	query := `
		UPDATE generations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("generation not found: %s", id)
	}

	return nil
}

// List retrieves generations matching the given criteria, newest first.
// Supported criteria keys: "user_id".
func (r *GenerationRepository) List(criteria map[string]any) ([]*models.Generation, error) {
	query := selectGenerations + ` WHERE deleted_at IS NULL`
	var args []any

	if userID, ok := criteria["user_id"]; ok {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	query += ` ORDER BY sequence DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	return scanGenerations(rows)
}

const selectGenerations = `
	SELECT id, sequence, user_id, playlist_id, playlist_name, playlist_url, mood, genre, artist_names, track_count, created_at, updated_at, deleted_at
	FROM generations
`

func scanGenerations(rows *sql.Rows) ([]*models.Generation, error) {
	var generations []*models.Generation

	for rows.Next() {
		var (
			id           string
			sequence     int
			userID       string
			playlistID   string
			playlistName string
			playlistURL  string
			mood         string
			genre        string
			artistNames  string
			trackCount   int
			createdAt    time.Time
			updatedAt    time.Time
			deletedAt    sql.NullTime
		)

		if err := rows.Scan(&id, &sequence, &userID, &playlistID, &playlistName, &playlistURL,
			&mood, &genre, &artistNames, &trackCount, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}

		playlist := models.Playlist{ID: playlistID, Name: playlistName, ExternalURL: playlistURL}

		var names []string
		if artistNames != "" {
			names = strings.Split(artistNames, ",")
		}

		generation := models.NewGeneration(sequence, userID, playlist, mood, genre, names, trackCount)
		generation.SetID(id)
		generation.SetCreatedAt(createdAt)
		generation.SetUpdatedAt(updatedAt)
		if deletedAt.Valid {
			generation.SetDeletedAt(&deletedAt.Time)
		}

		generations = append(generations, generation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}

	return generations, nil
}
