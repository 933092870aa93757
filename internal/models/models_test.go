package models

import (
	"errors"
	"testing"
)

func sampleTracks() []Track {
	return []Track{
		{ID: "a", Title: "Rain", Category: "nature", Duration: 120, AudioURL: "a.mp3"},
		{ID: "b", Title: "Waves", Category: "nature", Duration: 200, AudioURL: "b.mp3"},
		{ID: "c", Title: "Bowls", Category: "meditation", Duration: 95, AudioURL: "c.mp3"},
	}
}

func TestTrackValidate(t *testing.T) {
	tc := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{name: "valid", track: sampleTracks()[0]},
		{name: "missing id", track: Track{AudioURL: "x.mp3"}, wantErr: true},
		{name: "missing url", track: Track{ID: "x"}, wantErr: true},
		{name: "negative duration", track: Track{ID: "x", AudioURL: "x.mp3", Duration: -1}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidModel) {
				t.Errorf("expected ErrInvalidModel, got %v", err)
			}
		})
	}
}

func TestPlaylist(t *testing.T) {
	t.Run("NewPlaylist stamps positions", func(t *testing.T) {
		p := NewPlaylist("p1", "Calm", "", sampleTracks()...)
		if !p.Valid() {
			t.Fatal("expected positions 0..N-1")
		}
		if p.Len() != 3 {
			t.Errorf("expected 3 entries, got %d", p.Len())
		}
		if p.TotalDuration() != 415 {
			t.Errorf("expected total duration 415, got %d", p.TotalDuration())
		}
	})

	t.Run("Restamp after manual reorder", func(t *testing.T) {
		p := NewPlaylist("p1", "Calm", "", sampleTracks()...)
		p.Entries[0], p.Entries[2] = p.Entries[2], p.Entries[0]
		if p.Valid() {
			t.Fatal("swapped entries should break the position invariant")
		}
		p.Restamp()
		if !p.Valid() {
			t.Fatal("restamp should restore the invariant")
		}
		if got := p.TrackIDs(); got[0] != "c" || got[2] != "a" {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("Clone is independent", func(t *testing.T) {
		p := NewPlaylist("p1", "Calm", "", sampleTracks()...)
		c := p.Clone()
		c.Entries = c.Entries[:1]
		c.Entries[0].Track.Title = "changed"
		if p.Len() != 3 || p.Entries[0].Track.Title != "Rain" {
			t.Error("mutating the clone changed the original")
		}
	})

	t.Run("Nil playlist length", func(t *testing.T) {
		var p *Playlist
		if p.Len() != 0 {
			t.Error("nil playlist should have zero length")
		}
	})
}

func TestPlaylistDraftValidate(t *testing.T) {
	tc := []struct {
		name    string
		draft   PlaylistDraft
		wantErr bool
	}{
		{name: "valid", draft: PlaylistDraft{Title: "Calm", TrackIDs: []string{"a"}}},
		{name: "missing title", draft: PlaylistDraft{TrackIDs: []string{"a"}}, wantErr: true},
		{name: "no tracks", draft: PlaylistDraft{Title: "Calm"}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.draft.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
