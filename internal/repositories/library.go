package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/services"
)

// Library is the local SQLite implementation of [services.Library].
type Library struct {
	Tracks    *TrackRepository
	Playlists *PlaylistRepository
}

var (
	_ services.Library           = (*Library)(nil)
	_ services.PlaylistReorderer = (*Library)(nil)
)

// NewLibrary creates a Library over a migrated database.
func NewLibrary(db *sql.DB) *Library {
	return &Library{Tracks: NewTrackRepository(db), Playlists: NewPlaylistRepository(db)}
}

func (l *Library) ListTracks(ctx context.Context, category string) ([]models.Track, error) {
	return l.Tracks.List(ctx, category)
}

func (l *Library) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	return l.Tracks.Get(ctx, id)
}

// ListCategories returns the distinct categories of the library's tracks.
func (l *Library) ListCategories(ctx context.Context) ([]string, error) {
	return l.Tracks.Categories(ctx)
}

func (l *Library) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return l.Playlists.List(ctx)
}

func (l *Library) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return l.Playlists.Get(ctx, id)
}

// SavePlaylist creates the playlist when id is empty and replaces it otherwise.
func (l *Library) SavePlaylist(ctx context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error) {
	if id == "" {
		return l.Playlists.Create(ctx, draft)
	}
	return l.Playlists.Replace(ctx, id, draft)
}

// ReorderPlaylist persists a new order for an existing playlist.
func (l *Library) ReorderPlaylist(ctx context.Context, id string, trackIDs []string) error {
	return l.Playlists.Reorder(ctx, id, trackIDs)
}
