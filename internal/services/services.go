package services

import (
	"context"

	"github.com/desertthunder/serenitune/internal/models"
)

// TrackProvider returns tracks on request. The playback core only consumes them.
type TrackProvider interface {
	// ListTracks returns every track, or only those in category when it is not empty.
	ListTracks(ctx context.Context, category string) ([]models.Track, error)

	// GetTrack retrieves a track by ID. Unknown ids wrap [shared.ErrTrackNotFound].
	GetTrack(ctx context.Context, id string) (*models.Track, error)
}

// PlaylistProvider supplies playlists and accepts saves of an ordered list of track ids plus title and description.
type PlaylistProvider interface {
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a playlist with its entries in position order.
	// Unknown ids wrap [shared.ErrPlaylistNotFound].
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)

	// SavePlaylist creates a playlist when id is empty and replaces it otherwise.
	SavePlaylist(ctx context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error)
}

// Library is a provider for both tracks and playlists.
type Library interface {
	TrackProvider
	PlaylistProvider
}

// PlaylistReorderer persists a new order for an existing playlist without touching its title or description.
type PlaylistReorderer interface {
	ReorderPlaylist(ctx context.Context, id string, trackIDs []string) error
}

var (
	_ Library           = (*APIService)(nil)
	_ PlaylistReorderer = (*APIService)(nil)
)
