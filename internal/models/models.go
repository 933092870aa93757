package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidModel = errors.New("invalid model")

// Track represents a playable audio record.
type Track struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Duration    int    `json:"duration"` // Duration in seconds
	AudioURL    string `json:"audio_url"`
	Description string `json:"description,omitempty"`
}

// Length returns the track duration as a [time.Duration].
func (t Track) Length() time.Duration {
	return time.Duration(t.Duration) * time.Second
}

// Validate checks the fields the playback core relies on.
func (t Track) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: track id is required", ErrInvalidModel)
	case t.AudioURL == "":
		return fmt.Errorf("%w: track %s has no audio url", ErrInvalidModel, t.ID)
	case t.Duration < 0:
		return fmt.Errorf("%w: track %s has negative duration", ErrInvalidModel, t.ID)
	}
	return nil
}

// PlaylistEntry is a track at a position inside a playlist.
type PlaylistEntry struct {
	Track    Track `json:"track"`
	Position int   `json:"position"`
}

// Playlist represents an ordered collection of tracks.
type Playlist struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Entries     []PlaylistEntry `json:"tracks"`
}

// NewPlaylist builds a playlist from tracks in order, stamping positions.
func NewPlaylist(id, title, description string, tracks ...Track) *Playlist {
	p := &Playlist{ID: id, Title: title, Description: description, Entries: make([]PlaylistEntry, len(tracks))}
	for i, t := range tracks {
		p.Entries[i] = PlaylistEntry{Track: t}
	}
	p.Restamp()
	return p
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// Restamp rewrites entry positions to 0..N-1 in sequence order.
func (p *Playlist) Restamp() {
	for i := range p.Entries {
		p.Entries[i].Position = i
	}
}

// Valid reports whether positions are the contiguous integers 0..N-1 matching sequence order.
func (p *Playlist) Valid() bool {
	for i, e := range p.Entries {
		if e.Position != i {
			return false
		}
	}
	return true
}

// Tracks returns the tracks in playlist order.
func (p *Playlist) Tracks() []Track {
	tracks := make([]Track, len(p.Entries))
	for i, e := range p.Entries {
		tracks[i] = e.Track
	}
	return tracks
}

// TrackIDs returns the track identifiers in playlist order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.Track.ID
	}
	return ids
}

// TotalDuration sums the entry durations in seconds.
func (p *Playlist) TotalDuration() int {
	total := 0
	for _, e := range p.Entries {
		total += e.Track.Duration
	}
	return total
}

// Clone returns a deep copy of the playlist suitable for use as a working copy.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	c := *p
	c.Entries = append([]PlaylistEntry(nil), p.Entries...)
	return &c
}

// Draft converts the playlist into its save payload.
func (p *Playlist) Draft() PlaylistDraft {
	return PlaylistDraft{Title: p.Title, Description: p.Description, TrackIDs: p.TrackIDs()}
}

// PlaylistDraft is the payload accepted by a playlist provider's save operation.
type PlaylistDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TrackIDs    []string `json:"track_ids"`
}

// Validate enforces the save rules: a title and at least one track.
func (d PlaylistDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: playlist title is required", ErrInvalidModel)
	}
	if len(d.TrackIDs) == 0 {
		return fmt.Errorf("%w: playlist must contain at least one track", ErrInvalidModel)
	}
	return nil
}
