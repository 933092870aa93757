package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
)

const trackColumns = "id, title, category, duration, audio_url, description"

// TrackRepository persists [models.Track] records.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a track, generating an ID when the track has none.
func (r *TrackRepository) Create(ctx context.Context, track *models.Track) error {
	if track.ID == "" {
		track.ID = shared.GenerateID()
	}
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		sequence, err := NextSequence(ctx, tx, "tracks")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		now := time.Now()
		query := `
			INSERT INTO tracks (id, sequence, title, category, duration, audio_url, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			track.ID,
			sequence,
			track.Title,
			track.Category,
			track.Duration,
			track.AudioURL,
			track.Description,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}
		return nil
	})
}

// Upsert inserts the track or, when a live track with the same audio url exists, updates its metadata.
// It reports whether a new row was created. The track's ID is set to the stored row's ID.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) (bool, error) {
	existing, err := r.GetByAudioURL(ctx, track.AudioURL)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return true, r.Create(ctx, track)
	}
	if err != nil {
		return false, err
	}

	track.ID = existing.ID
	return false, r.Update(ctx, track)
}

// Update modifies an existing track
func (r *TrackRepository) Update(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		UPDATE tracks
		SET title = ?, category = ?, duration = ?, audio_url = ?, description = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		track.Title,
		track.Category,
		track.Duration,
		track.AudioURL,
		track.Description,
		time.Now(),
		track.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	return affected(result, shared.ErrTrackNotFound, track.ID)
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ? AND deleted_at IS NULL"
	return scanTrack(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByAudioURL retrieves a track by its audio url
func (r *TrackRepository) GetByAudioURL(ctx context.Context, audioURL string) (*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE audio_url = ? AND deleted_at IS NULL"
	return scanTrack(r.db.QueryRowContext(ctx, query, audioURL), audioURL)
}

// List retrieves tracks in insertion order, restricted to category when it is not empty.
func (r *TrackRepository) List(ctx context.Context, category string) ([]models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE deleted_at IS NULL"
	args := []any{}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.Duration, &t.AudioURL, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Categories returns the distinct non-empty categories in alphabetical order.
func (r *TrackRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM tracks
		WHERE deleted_at IS NULL AND category != ''
		ORDER BY category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return affected(result, shared.ErrTrackNotFound, id)
}

func scanTrack(row *sql.Row, key string) (*models.Track, error) {
	var t models.Track
	err := row.Scan(&t.ID, &t.Title, &t.Category, &t.Duration, &t.AudioURL, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return &t, nil
}

// affected maps a zero-row update onto notFound.
func affected(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
