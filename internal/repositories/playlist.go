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

// PlaylistRepository persists playlists and their ordered membership.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist from draft and returns it with entries loaded.
func (r *PlaylistRepository) Create(ctx context.Context, draft models.PlaylistDraft) (*models.Playlist, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	id := shared.GenerateID()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		sequence, err := NextSequence(ctx, tx, "playlists")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		now := time.Now()
		query := `
			INSERT INTO playlists (id, sequence, title, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, id, sequence, draft.Title, draft.Description, now, now); err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}
		return writeEntries(ctx, tx, id, draft.TrackIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Replace overwrites the title, description and tracks of an existing playlist.
func (r *PlaylistRepository) Replace(ctx context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE playlists
			SET title = ?, description = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
		`
		result, err := tx.ExecContext(ctx, query, draft.Title, draft.Description, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}
		if err := affected(result, shared.ErrPlaylistNotFound, id); err != nil {
			return err
		}
		return writeEntries(ctx, tx, id, draft.TrackIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Reorder stores a new order for the playlist's tracks. trackIDs must be a permutation of the current membership.
func (r *PlaylistRepository) Reorder(ctx context.Context, id string, trackIDs []string) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !samePermutation(current.TrackIDs(), trackIDs) {
		return fmt.Errorf("%w: order does not match the tracks of playlist %s", shared.ErrInvalidInput, id)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE playlists SET updated_at = ? WHERE id = ?", time.Now(), id); err != nil {
			return fmt.Errorf("failed to touch playlist: %w", err)
		}
		return writeEntries(ctx, tx, id, trackIDs)
	})
}

// Get retrieves a playlist by ID with entries in position order, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	p := &models.Playlist{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, description FROM playlists WHERE id = ? AND deleted_at IS NULL", id,
	).Scan(&p.ID, &p.Title, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	entries, err := r.entries(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Entries = entries
	return p, nil
}

// List retrieves all playlists with their entries, excluding soft-deleted playlists
func (r *PlaylistRepository) List(ctx context.Context) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description FROM playlists
		WHERE deleted_at IS NULL
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Title, &p.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i := range playlists {
		entries, err := r.entries(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Entries = entries
	}
	return playlists, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return affected(result, shared.ErrPlaylistNotFound, id)
}

func (r *PlaylistRepository) entries(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	query := `
		SELECT t.id, t.title, t.category, t.duration, t.audio_url, t.description, pt.position
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ? AND t.deleted_at IS NULL
		ORDER BY pt.position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	p := &models.Playlist{Entries: []models.PlaylistEntry{}}
	for rows.Next() {
		var e models.PlaylistEntry
		t := &e.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.Duration, &t.AudioURL, &t.Description, &e.Position); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		p.Entries = append(p.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// soft-deleted tracks leave gaps
	p.Restamp()
	return p.Entries, nil
}

// writeEntries replaces the membership of a playlist with trackIDs at positions 0..N-1.
func writeEntries(ctx context.Context, tx *sql.Tx, playlistID string, trackIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	for pos, trackID := range trackIDs {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM tracks WHERE id = ? AND deleted_at IS NULL)", trackID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check track: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
			playlistID, trackID, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist track: %w", err)
		}
	}
	return nil
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
