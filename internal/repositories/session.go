package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database with generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sessions (id, sequence, user_id, display_name, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, session.UserID(), session.DisplayName(),
		session.AccessToken(), session.RefreshToken(), session.TokenExpiry(),
		session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, sequence, user_id, display_name, access_token, refresh_token, token_expiry, created_at, updated_at, deleted_at
		FROM sessions
		WHERE id = ? AND deleted_at IS NULL
	`
	return r.scanSession(r.db.QueryRow(query, id))
}

// GetByUserID retrieves the session for a Spotify user id, excluding soft-deleted sessions.
func (r *SessionRepository) GetByUserID(userID string) (*models.Session, error) {
	query := `
		SELECT id, sequence, user_id, display_name, access_token, refresh_token, token_expiry, created_at, updated_at, deleted_at
		FROM sessions
		WHERE user_id = ? AND deleted_at IS NULL
	`
	return r.scanSession(r.db.QueryRow(query, userID))
}

func (r *SessionRepository) scanSession(row *sql.Row) (*models.Session, error) {
	var (
		sessionID    string
		sequence     int
		userID       string
		displayName  string
		accessToken  string
		refreshToken string
		tokenExpiry  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&sessionID, &sequence, &userID, &displayName, &accessToken,
		&refreshToken, &tokenExpiry, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no stored session", shared.ErrNoSession)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var expiry time.Time
	if tokenExpiry.Valid {
		expiry = tokenExpiry.Time
	}

	session := models.NewSession(sequence, userID, displayName, accessToken, refreshToken, expiry)
	session.SetID(sessionID)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET display_name = ?, access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, session.DisplayName(), session.AccessToken(),
		session.RefreshToken(), session.TokenExpiry(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session not found: %s", shared.ErrNoSession, session.ID())
	}

	return nil
}

// Delete soft-deletes a session by setting deleted_at
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session not found: %s", shared.ErrNoSession, id)
	}

	return nil
}

// List retrieves all sessions matching the given criteria, excluding soft-deleted sessions
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `
		SELECT id, sequence, user_id, display_name, access_token, refresh_token, token_expiry, created_at, updated_at, deleted_at
		FROM sessions
		WHERE deleted_at IS NULL
		ORDER BY sequence
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var (
			sessionID    string
			sequence     int
			userID       string
			displayName  string
			accessToken  string
			refreshToken string
			tokenExpiry  sql.NullTime
			createdAt    time.Time
			updatedAt    time.Time
			deletedAt    sql.NullTime
		)

		if err := rows.Scan(&sessionID, &sequence, &userID, &displayName, &accessToken,
			&refreshToken, &tokenExpiry, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		var expiry time.Time
		if tokenExpiry.Valid {
			expiry = tokenExpiry.Time
		}

		session := models.NewSession(sequence, userID, displayName, accessToken, refreshToken, expiry)
		session.SetID(sessionID)
		session.SetCreatedAt(createdAt)
		session.SetUpdatedAt(updatedAt)

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}
