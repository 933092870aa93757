package playlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/samber/lo"
)

// Saver persists a playlist draft. An empty id creates a new playlist.
type Saver interface {
	SavePlaylist(ctx context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error)
}

// Builder is an editable working copy of a playlist plus the catalog it draws tracks from.
//
// Every mutation leaves entry positions re-stamped.
type Builder struct {
	working   *models.Playlist
	available []models.Track
}

// NewBuilder starts from initial, or from an empty playlist when initial is nil.
// The initial playlist is copied, never mutated.
func NewBuilder(available []models.Track, initial *models.Playlist) *Builder {
	working := initial.Clone()
	if working == nil {
		working = models.NewPlaylist("", "", "")
	}
	working.Restamp()
	return &Builder{working: working, available: available}
}

// Playlist returns the working copy. Reorder engines operate on it in place.
func (b *Builder) Playlist() *models.Playlist { return b.working }

func (b *Builder) Available() []models.Track { return b.available }

func (b *Builder) SetTitle(title string)             { b.working.Title = title }
func (b *Builder) SetDescription(description string) { b.working.Description = description }

// Contains reports whether the track is already in the working copy.
func (b *Builder) Contains(trackID string) bool {
	return lo.ContainsBy(b.working.Entries, func(e models.PlaylistEntry) bool {
		return e.Track.ID == trackID
	})
}

// Add appends a track. Tracks already present are ignored and Add reports false.
func (b *Builder) Add(track models.Track) bool {
	if b.Contains(track.ID) {
		return false
	}
	b.working.Entries = append(b.working.Entries, models.PlaylistEntry{Track: track})
	b.working.Restamp()
	return true
}

// RemoveAt drops the entry at index i.
func (b *Builder) RemoveAt(i int) error {
	if i < 0 || i >= len(b.working.Entries) {
		return fmt.Errorf("%w: index %d out of range [0, %d)", shared.ErrInvalidInput, i, len(b.working.Entries))
	}
	b.working.Entries = append(b.working.Entries[:i], b.working.Entries[i+1:]...)
	b.working.Restamp()
	return nil
}

// Move relocates the entry at from to index to.
func (b *Builder) Move(from, to int) error {
	n := len(b.working.Entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d out of range [0, %d)", shared.ErrInvalidInput, from, to, n)
	}
	e := b.working.Entries[from]
	b.working.Entries = append(b.working.Entries[:from], b.working.Entries[from+1:]...)
	b.working.Entries = append(b.working.Entries[:to], append([]models.PlaylistEntry{e}, b.working.Entries[to:]...)...)
	b.working.Restamp()
	return nil
}

// Filter returns catalog tracks whose title or category contains query, ignoring case.
func (b *Builder) Filter(query string) []models.Track {
	return Filter(b.available, query)
}

// Filter matches tracks by title or category, ignoring case. An empty query matches everything.
func Filter(tracks []models.Track, query string) []models.Track {
	q := shared.NormalizeQuery(query)
	if q == "" {
		return tracks
	}
	return lo.Filter(tracks, func(t models.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Category), q)
	})
}

// Draft builds the save payload, requiring a title and at least one track.
func (b *Builder) Draft() (models.PlaylistDraft, error) {
	if strings.TrimSpace(b.working.Title) == "" {
		return models.PlaylistDraft{}, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if len(b.working.Entries) == 0 {
		return models.PlaylistDraft{}, fmt.Errorf("%w: playlist must have at least one track", shared.ErrInvalidInput)
	}
	return b.working.Draft(), nil
}

// Save validates the working copy and hands it to saver, adopting the id it returns.
func (b *Builder) Save(ctx context.Context, saver Saver) (*models.Playlist, error) {
	draft, err := b.Draft()
	if err != nil {
		return nil, err
	}
	saved, err := saver.SavePlaylist(ctx, b.working.ID, draft)
	if err != nil {
		return nil, err
	}
	if saved != nil && saved.ID != "" {
		b.working.ID = saved.ID
	}
	return saved, nil
}
