package session

import (
	"fmt"
	"time"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
)

// Transport is the playback lifecycle phase.
type Transport int

const (
	Idle Transport = iota
	Loading
	Playing
	Paused
	Ended
	Error
)

func (t Transport) String() string {
	switch t {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the transport by name.
func (t Transport) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a transport name produced by MarshalText.
func (t *Transport) UnmarshalText(b []byte) error {
	for c := Idle; c <= Error; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown transport %q", b)
}

var transitions = map[Transport][]Transport{
	Idle:    {Loading, Playing, Paused, Error},
	Loading: {Playing, Paused, Error},
	Playing: {Paused, Ended, Loading, Error},
	Paused:  {Playing, Loading, Error},
	Ended:   {Loading, Idle, Playing, Paused},
	Error:   {Loading},
}

func canTransition(from, to Transport) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// State is a published snapshot of the session. Pointers are copies owned by the receiver.
type State struct {
	CurrentTrack   *models.Track    `json:"current_track"`
	Transport      Transport        `json:"transport"`
	CurrentTime    time.Duration    `json:"current_time"`
	Duration       time.Duration    `json:"duration"`
	Volume         float64          `json:"volume"`
	Muted          bool             `json:"muted"`
	ActivePlaylist *models.Playlist `json:"active_playlist,omitempty"`
	PlayerVisible  bool             `json:"player_visible"`
}

// EffectiveVolume is the level actually sent to the device.
func (s State) EffectiveVolume() float64 {
	if s.Muted {
		return 0
	}
	return s.Volume
}

func (s State) IsPlaying() bool { return s.Transport == Playing }

// IsCurrent reports whether trackID is the loaded track.
func (s State) IsCurrent(trackID string) bool {
	return s.CurrentTrack != nil && s.CurrentTrack.ID == trackID
}

// Progress is the played share of the track in [0, 1].
func (s State) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return shared.Clamp(float64(s.CurrentTime)/float64(s.Duration), 0, 1)
}

func (s State) clone() State {
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	s.ActivePlaylist = s.ActivePlaylist.Clone()
	return s
}

// FormatTime renders a playback position as M:SS.
func FormatTime(d time.Duration) string {
	return shared.FormatClock(d)
}
