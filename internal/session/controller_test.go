package session

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	tu "github.com/desertthunder/serenitune/internal/testing"
)

func newController(t *testing.T) (*Controller, *tu.FakeDevice) {
	t.Helper()
	dev := tu.NewFakeDevice()
	c := New(Options{Device: dev, Volume: DefaultVolume})
	t.Cleanup(func() { c.Dispose() })
	return c, dev
}

// current stamps ev as coming from the device's latest load.
func current(dev *tu.FakeDevice, ev audio.Event) audio.Event {
	return ev.WithGeneration(dev.Generation())
}

// waitLoads blocks until the device has seen n loads.
func waitLoads(t *testing.T, dev *tu.FakeDevice, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(dev.Loads()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("loads = %d, want %d", len(dev.Loads()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTransportString(t *testing.T) {
	tc := map[Transport]string{
		Idle: "idle", Loading: "loading", Playing: "playing",
		Paused: "paused", Ended: "ended", Error: "error", Transport(42): "unknown",
	}
	for tr, want := range tc {
		if got := tr.String(); got != want {
			t.Errorf("Transport(%d).String() = %q, want %q", tr, got, want)
		}
	}
}

func TestTransportText(t *testing.T) {
	for tr := Idle; tr <= Error; tr++ {
		b, _ := tr.MarshalText()
		var got Transport
		if err := got.UnmarshalText(b); err != nil || got != tr {
			t.Errorf("round trip of %s gave %s (%v)", tr, got, err)
		}
	}

	var tr Transport
	if err := tr.UnmarshalText([]byte("rewinding")); err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestCanTransition(t *testing.T) {
	tc := []struct {
		from, to Transport
		want     bool
	}{
		{Idle, Loading, true},
		{Loading, Playing, true},
		{Playing, Paused, true},
		{Paused, Playing, true},
		{Playing, Ended, true},
		{Ended, Loading, true},
		{Ended, Idle, true},
		{Playing, Error, true},
		{Error, Loading, true},
		{Error, Playing, false},
		{Idle, Ended, false},
		{Paused, Ended, false},
	}
	for _, tt := range tc {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPlayTrack(t *testing.T) {
	tracks := tu.SampleTracks(3)

	t.Run("distinct tracks leave the last one playing", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tracks[0])
		c.PlayTrack(tracks[1])

		s := c.State()
		if !s.IsCurrent(tracks[1].ID) || s.Transport != Playing {
			t.Errorf("state = %v / %v, want %s / playing", s.CurrentTrack, s.Transport, tracks[1].ID)
		}
		if got := dev.Loads(); !slices.Equal(got, []string{tracks[0].AudioURL, tracks[1].AudioURL}) {
			t.Errorf("loads = %v", got)
		}
		if !s.PlayerVisible {
			t.Error("playing a track should show the player")
		}
	})

	t.Run("same track toggles", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tracks[0])
		c.PlayTrack(tracks[0])
		if s := c.State(); s.Transport != Paused || !s.IsCurrent(tracks[0].ID) {
			t.Errorf("after second play = %v", s.Transport)
		}
		c.PlayTrack(tracks[0])
		if s := c.State(); s.Transport != Playing {
			t.Errorf("after third play = %v", s.Transport)
		}
		if len(dev.Loads()) != 1 {
			t.Errorf("track reloaded %d times", len(dev.Loads()))
		}
	})

	t.Run("blocked play reverts to paused", func(t *testing.T) {
		c, dev := newController(t)
		dev.PlayErr = shared.ErrPlaybackBlocked
		c.PlayTrack(tracks[0])
		if s := c.State(); s.Transport != Paused || !s.IsCurrent(tracks[0].ID) {
			t.Errorf("state = %v, want paused with track loaded", s.Transport)
		}

		dev.PlayErr = nil
		c.TogglePlayPause()
		if s := c.State(); s.Transport != Playing {
			t.Errorf("retry after gesture = %v, want playing", s.Transport)
		}
	})

	t.Run("load failure enters error and toggle retries", func(t *testing.T) {
		c, dev := newController(t)
		dev.LoadErr = shared.ErrDevice
		c.PlayTrack(tracks[0])
		if s := c.State(); s.Transport != Error {
			t.Fatalf("state = %v, want error", s.Transport)
		}

		dev.LoadErr = nil
		c.TogglePlayPause()
		if s := c.State(); s.Transport != Playing {
			t.Errorf("state after retry = %v, want playing", s.Transport)
		}
		if len(dev.Loads()) != 2 {
			t.Errorf("loads = %d, want 2", len(dev.Loads()))
		}
	})

	t.Run("duration comes from the track until metadata arrives", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tracks[1])
		if got := c.State().Duration; got != tracks[1].Length() {
			t.Errorf("Duration = %v, want %v", got, tracks[1].Length())
		}
		c.HandleEvent(current(dev, audio.LoadedMetadata(90*time.Second)))
		if got := c.State().Duration; got != 90*time.Second {
			t.Errorf("Duration = %v, want 90s", got)
		}
	})
}

func TestLoadSupersede(t *testing.T) {
	tracks := tu.SampleTracks(2)

	t.Run("state stays observable while loading", func(t *testing.T) {
		c, dev := newController(t)
		release := dev.Hold(tracks[0].AudioURL)
		defer release()
		updates, cancel := c.Subscribe()
		defer cancel()
		<-updates

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.PlayTrack(tracks[0])
		}()
		waitLoads(t, dev, 1)

		s := c.State()
		if s.Transport != Loading || !s.IsCurrent(tracks[0].ID) {
			t.Errorf("state while loading = %v / %v, want loading %s", s.CurrentTrack, s.Transport, tracks[0].ID)
		}
		if got := <-updates; got.Transport != Loading {
			t.Errorf("published %v, want loading", got.Transport)
		}

		c.TogglePlayPause()
		if got := c.State().Transport; got != Loading {
			t.Errorf("toggle while loading = %v, want loading", got)
		}

		release()
		<-done
		if got := c.State().Transport; got != Playing {
			t.Errorf("after load = %v, want playing", got)
		}
	})

	t.Run("later load wins", func(t *testing.T) {
		c, dev := newController(t)
		release := dev.Hold(tracks[0].AudioURL)
		defer release()

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.PlayTrack(tracks[0])
		}()
		waitLoads(t, dev, 1)

		c.PlayTrack(tracks[1])
		<-done

		s := c.State()
		if !s.IsCurrent(tracks[1].ID) || s.Transport != Playing {
			t.Errorf("state = %v / %v, want %s playing", s.CurrentTrack, s.Transport, tracks[1].ID)
		}
		if dev.Plays() != 1 {
			t.Errorf("plays = %d, superseded load should not play", dev.Plays())
		}
	})

	t.Run("dispose cancels a pending load", func(t *testing.T) {
		dev := tu.NewFakeDevice()
		c := New(Options{Device: dev})
		c.Init(t.Context())
		dev.Hold(tracks[0].AudioURL)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.PlayTrack(tracks[0])
		}()
		waitLoads(t, dev, 1)

		if err := c.Dispose(); err != nil {
			t.Fatalf("Dispose() error = %v", err)
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("PlayTrack still blocked after dispose")
		}
		if dev.Plays() != 0 {
			t.Errorf("plays = %d after dispose", dev.Plays())
		}
	})
}

func TestTogglePlayPause(t *testing.T) {
	t.Run("no-op without a track", func(t *testing.T) {
		c, dev := newController(t)
		c.TogglePlayPause()
		if c.State().Transport != Idle || dev.Plays() != 0 {
			t.Error("toggle without a track touched the device")
		}
	})

	t.Run("finished track restarts from zero", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tu.SampleTracks(1)[0])
		c.HandleEvent(current(dev, audio.TimeUpdate(30*time.Second)))
		c.HandleEvent(current(dev, audio.Ended()))
		if s := c.State(); s.Transport != Idle || s.CurrentTime != 0 {
			t.Fatalf("after end = %v at %v", s.Transport, s.CurrentTime)
		}

		c.TogglePlayPause()
		if s := c.State(); s.Transport != Playing {
			t.Errorf("after toggle = %v, want playing", s.Transport)
		}
		seeks := dev.Seeks()
		if len(seeks) == 0 || seeks[len(seeks)-1] != 0 {
			t.Errorf("seeks = %v, want a final seek to 0", seeks)
		}
	})
}

func TestSeek(t *testing.T) {
	c, dev := newController(t)
	track := models.Track{ID: "t", AudioURL: "/t.mp3", Duration: 120}
	c.PlayTrack(track)

	tc := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{name: "negative clamps to zero", in: -5 * time.Second, want: 0},
		{name: "past end clamps to duration", in: 500 * time.Second, want: 120 * time.Second},
		{name: "within range", in: 42 * time.Second, want: 42 * time.Second},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			c.Seek(tt.in)
			if got := c.State().CurrentTime; got != tt.want {
				t.Errorf("CurrentTime = %v, want %v", got, tt.want)
			}
			if got := dev.Position(); got != tt.want {
				t.Errorf("device position = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolume(t *testing.T) {
	t.Run("clamped", func(t *testing.T) {
		c, dev := newController(t)
		c.SetVolume(1.5)
		if c.State().Volume != 1 || dev.Volume() != 1 {
			t.Errorf("volume = %v / %v, want 1", c.State().Volume, dev.Volume())
		}
		c.SetVolume(-1)
		if c.State().Volume != 0 {
			t.Errorf("volume = %v, want 0", c.State().Volume)
		}
	})

	t.Run("mute twice restores effective volume", func(t *testing.T) {
		c, dev := newController(t)
		c.SetVolume(0.4)
		before := c.State().EffectiveVolume()
		c.ToggleMute()
		if c.State().EffectiveVolume() != 0 || dev.Volume() != 0 {
			t.Error("muted session should be silent")
		}
		c.ToggleMute()
		if got := c.State().EffectiveVolume(); got != before || dev.Volume() != before {
			t.Errorf("effective volume = %v, want %v", got, before)
		}
	})

	t.Run("setting volume never unmutes", func(t *testing.T) {
		c, dev := newController(t)
		c.ToggleMute()
		c.SetVolume(0.9)
		s := c.State()
		if !s.Muted || dev.Volume() != 0 {
			t.Errorf("muted = %v, device volume = %v", s.Muted, dev.Volume())
		}
		c.ToggleMute()
		if dev.Volume() != 0.9 {
			t.Errorf("unmuted device volume = %v, want 0.9", dev.Volume())
		}
	})

	t.Run("init applies initial volume", func(t *testing.T) {
		c, dev := newController(t)
		c.Init(t.Context())
		if dev.Volume() != DefaultVolume {
			t.Errorf("device volume = %v, want %v", dev.Volume(), DefaultVolume)
		}
	})
}

func TestPlaylists(t *testing.T) {
	tracks := tu.SampleTracks(3)
	p := models.NewPlaylist("p1", "Evening", "", tracks...)

	t.Run("empty playlist is ignored", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayPlaylist(models.NewPlaylist("empty", "Empty", ""), 0)
		c.PlayPlaylist(nil, 0)
		if s := c.State(); s.ActivePlaylist != nil || len(dev.Loads()) != 0 {
			t.Error("empty playlist changed the session")
		}
	})

	t.Run("start index", func(t *testing.T) {
		c, _ := newController(t)
		c.PlayPlaylist(p, 2)
		if !c.State().IsCurrent(tracks[2].ID) {
			t.Errorf("current = %v, want %s", c.State().CurrentTrack, tracks[2].ID)
		}
	})

	t.Run("out of range start plays first", func(t *testing.T) {
		c, _ := newController(t)
		c.PlayPlaylist(p, 9)
		if !c.State().IsCurrent(tracks[0].ID) {
			t.Errorf("current = %v, want %s", c.State().CurrentTrack, tracks[0].ID)
		}
	})

	t.Run("active playlist is a copy", func(t *testing.T) {
		c, _ := newController(t)
		local := p.Clone()
		c.PlayPlaylist(local, 0)
		local.Entries[0].Track.Title = "changed"
		if c.State().ActivePlaylist.Entries[0].Track.Title == "changed" {
			t.Error("controller shares the caller's playlist")
		}
	})

	t.Run("next and previous wrap", func(t *testing.T) {
		c, _ := newController(t)
		c.PlayPlaylist(p, 1)
		c.PlayNextTrack()
		if !c.State().IsCurrent(tracks[2].ID) {
			t.Errorf("next = %v", c.State().CurrentTrack)
		}
		c.PlayNextTrack()
		if !c.State().IsCurrent(tracks[0].ID) {
			t.Errorf("wrapped next = %v", c.State().CurrentTrack)
		}
		c.PlayPreviousTrack()
		if s := c.State(); !s.IsCurrent(tracks[2].ID) || s.Transport != Playing {
			t.Errorf("previous = %v (%v)", s.CurrentTrack, s.Transport)
		}
	})

	t.Run("single entry restarts instead of toggling", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayPlaylist(models.NewPlaylist("solo", "Solo", "", tracks[0]), 0)
		c.PlayNextTrack()
		if s := c.State(); s.Transport != Playing {
			t.Errorf("state = %v, want playing", s.Transport)
		}
		if len(dev.Loads()) != 2 {
			t.Errorf("loads = %d, want 2", len(dev.Loads()))
		}
	})

	t.Run("navigation miss is absorbed", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayPlaylist(p, 0)
		c.PlayTrack(models.Track{ID: "elsewhere", AudioURL: "/x.mp3"})
		loads := len(dev.Loads())
		c.PlayNextTrack()
		c.PlayPreviousTrack()
		if len(dev.Loads()) != loads || !c.State().IsCurrent("elsewhere") {
			t.Error("navigation from a track outside the playlist changed playback")
		}
	})

	t.Run("navigation without playlist is a no-op", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tracks[0])
		c.PlayNextTrack()
		if len(dev.Loads()) != 1 {
			t.Error("navigation without a playlist loaded a track")
		}
	})

	t.Run("ended advances to next entry", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayPlaylist(p, 2)
		c.HandleEvent(current(dev, audio.Ended()))
		if s := c.State(); !s.IsCurrent(tracks[0].ID) || s.Transport != Playing {
			t.Errorf("after end = %v (%v)", s.CurrentTrack, s.Transport)
		}
	})

	t.Run("reordered active playlist drives navigation", func(t *testing.T) {
		c, _ := newController(t)
		c.PlayPlaylist(p, 0)
		reordered := models.NewPlaylist("p1", "Evening", "", tracks[0], tracks[2], tracks[1])
		c.UpdateActivePlaylist(reordered)
		c.PlayNextTrack()
		if !c.State().IsCurrent(tracks[2].ID) {
			t.Errorf("next = %v, want %s", c.State().CurrentTrack, tracks[2].ID)
		}
	})
}

func TestHandleEvent(t *testing.T) {
	t.Run("time update", func(t *testing.T) {
		c, dev := newController(t)
		c.HandleEvent(audio.TimeUpdate(5 * time.Second))
		if c.State().CurrentTime != 0 {
			t.Error("time update applied without a track")
		}
		c.PlayTrack(tu.SampleTracks(1)[0])
		c.HandleEvent(current(dev, audio.TimeUpdate(5*time.Second)))
		if c.State().CurrentTime != 5*time.Second {
			t.Errorf("CurrentTime = %v", c.State().CurrentTime)
		}
	})

	t.Run("device error", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tu.SampleTracks(1)[0])
		c.HandleEvent(current(dev, audio.Failed(errors.New("decode failed"))))
		if c.State().Transport != Error {
			t.Errorf("state = %v, want error", c.State().Transport)
		}
	})

	t.Run("ended while paused is ignored", func(t *testing.T) {
		c, dev := newController(t)
		c.PlayTrack(tu.SampleTracks(1)[0])
		c.TogglePlayPause()
		c.HandleEvent(current(dev, audio.Ended()))
		if c.State().Transport != Paused {
			t.Errorf("state = %v, want paused", c.State().Transport)
		}
	})

	t.Run("events from a superseded load are dropped", func(t *testing.T) {
		c, dev := newController(t)
		tracks := tu.SampleTracks(2)
		c.PlayTrack(tracks[0])
		stale := dev.Generation()
		c.PlayTrack(tracks[1])

		c.HandleEvent(audio.TimeUpdate(30 * time.Second).WithGeneration(stale))
		c.HandleEvent(audio.Ended().WithGeneration(stale))
		c.HandleEvent(audio.Failed(errors.New("old stream")).WithGeneration(stale))

		s := c.State()
		if !s.IsCurrent(tracks[1].ID) || s.Transport != Playing || s.CurrentTime != 0 {
			t.Errorf("state = %v / %v at %v, want %s playing at 0", s.CurrentTrack, s.Transport, s.CurrentTime, tracks[1].ID)
		}
		if len(dev.Loads()) != 2 {
			t.Errorf("stale ended advanced playback: loads = %v", dev.Loads())
		}
	})

	t.Run("events dispatched after init", func(t *testing.T) {
		c, dev := newController(t)
		c.Init(t.Context())
		c.PlayTrack(tu.SampleTracks(1)[0])

		updates, cancel := c.Subscribe()
		defer cancel()
		dev.Emit(audio.TimeUpdate(7 * time.Second))

		timeout := time.After(2 * time.Second)
		for {
			select {
			case s := <-updates:
				if s.CurrentTime == 7*time.Second {
					return
				}
			case <-timeout:
				t.Fatal("time update never reached subscribers")
			}
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("latest wins", func(t *testing.T) {
		c, _ := newController(t)
		updates, cancel := c.Subscribe()
		defer cancel()

		c.SetVolume(0.1)
		c.SetVolume(0.2)
		c.SetVolume(0.3)

		s := <-updates
		if s.Volume != 0.3 {
			t.Errorf("received volume %v, want latest 0.3", s.Volume)
		}
		select {
		case extra := <-updates:
			t.Errorf("unexpected queued state %+v", extra)
		default:
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		c, _ := newController(t)
		updates, cancel := c.Subscribe()
		<-updates
		cancel()
		cancel()
		if _, ok := <-updates; ok {
			t.Error("channel still open after cancel")
		}
	})

	t.Run("dispose closes subscriptions and device", func(t *testing.T) {
		dev := tu.NewFakeDevice()
		c := New(Options{Device: dev})
		c.Init(t.Context())
		updates, _ := c.Subscribe()
		<-updates

		if err := c.Dispose(); err != nil {
			t.Fatalf("Dispose() error = %v", err)
		}
		if _, ok := <-updates; ok {
			t.Error("subscription open after dispose")
		}
		if !dev.Closed() {
			t.Error("device not closed")
		}
		if err := c.Dispose(); err != nil {
			t.Errorf("second Dispose() error = %v", err)
		}
	})
}

func TestAnalyzer(t *testing.T) {
	c, dev := newController(t)
	first, err := c.Analyzer()
	if err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
	second, err := c.Analyzer()
	if err != nil {
		t.Fatalf("second Analyzer() error = %v", err)
	}
	if first != second {
		t.Error("Analyzer() returned a different analyzer")
	}
	if dev.Attaches() != 1 {
		t.Errorf("tap attached %d times, want 1", dev.Attaches())
	}
}

func TestPlayerVisibility(t *testing.T) {
	c, _ := newController(t)
	c.SetPlayerVisible(true)
	if c.State().PlayerVisible {
		t.Error("player shown without a track")
	}
	c.PlayTrack(tu.SampleTracks(1)[0])
	c.SetPlayerVisible(false)
	if s := c.State(); s.PlayerVisible || s.Transport != Playing {
		t.Error("closing the player should hide it without stopping playback")
	}
}

func TestStateHelpers(t *testing.T) {
	s := State{Duration: 100 * time.Second, CurrentTime: 25 * time.Second}
	if got := s.Progress(); got != 0.25 {
		t.Errorf("Progress() = %v, want 0.25", got)
	}
	if got := FormatTime(75 * time.Second); got != "1:15" {
		t.Errorf("FormatTime() = %q, want 1:15", got)
	}
	if got := (State{}).Progress(); got != 0 {
		t.Errorf("Progress() without duration = %v", got)
	}
}
