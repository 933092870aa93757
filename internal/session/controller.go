package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/playlist"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/spectrum"
)

const DefaultVolume = 0.7

// Options configures a [Controller].
type Options struct {
	Device   audio.Device
	Logger   *log.Logger
	Volume   float64
	Analyzer spectrum.Config
	// Registry is shared when several controllers could bind the same device. Optional.
	Registry *spectrum.Registry
}

// Controller orchestrates playback. Operations are serialized with event handling, except that
// the mutex is released while a track loads so the state stays observable and a later load can
// supersede it.
type Controller struct {
	mu       sync.Mutex
	device   audio.Device
	registry *spectrum.Registry
	logger   *log.Logger
	state    State

	// loads counts load attempts; only the newest one may apply its result.
	loads      uint64
	cancelLoad context.CancelFunc
	// generation is the device load whose events are accepted. Zero while loading.
	generation uint64

	subs    map[int]chan State
	nextSub int

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	disposed bool
}

// New creates an idle controller. Call [Controller.Init] before use and [Controller.Dispose] at shutdown.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	logger = shared.WithLogger(logger, "component", "session")

	cfg := opts.Analyzer
	if cfg.FFTSize == 0 {
		cfg = spectrum.DefaultConfig()
	}
	registry := opts.Registry
	if registry == nil {
		registry = spectrum.NewRegistry(cfg, logger)
	}

	return &Controller{
		device:   opts.Device,
		registry: registry,
		logger:   logger,
		state:    State{Transport: Idle, Volume: shared.Clamp(opts.Volume, 0, 1)},
		subs:     make(map[int]chan State),
		ctx:      context.Background(),
	}
}

// Init applies the initial volume and starts draining device events. Calling it again does nothing.
func (c *Controller) Init(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil || c.disposed {
		return
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.device.SetVolume(c.state.EffectiveVolume())
	go c.dispatch(c.ctx, c.device.Events(), c.done)
	c.logger.Debug("session initialized", "volume", c.state.Volume)
}

// Dispose stops event dispatch, closes every subscription and closes the device.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.mu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	c.registry.Release(c.device)
	return c.device.Close()
}

func (c *Controller) dispatch(ctx context.Context, events <-chan audio.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(ev)
		}
	}
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe delivers the latest state on every change. Slow readers only ever see the newest state.
// The returned cancel func releases the subscription and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.disposed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// publishLocked replaces whatever each subscriber has not read yet.
func (c *Controller) publishLocked() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state.clone()
	}
}

// Analyzer returns the spectrum analyzer bound to the session's device, attaching the tap on first use.
func (c *Controller) Analyzer() (*spectrum.Analyzer, error) {
	return c.registry.Acquire(c.device)
}

func (c *Controller) transition(to Transport) bool {
	from := c.state.Transport
	if from == to {
		return true
	}
	if !canTransition(from, to) {
		c.logger.Warn("ignoring invalid transition", "from", from, "to", to)
		return false
	}
	c.state.Transport = to
	return true
}

// PlayTrack loads and starts track. Calling it with the loaded track toggles play and pause instead.
func (c *Controller) PlayTrack(track models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()

	if c.state.IsCurrent(track.ID) {
		c.toggleLocked()
		return
	}
	c.startLocked(track)
}

// startLocked binds track and plays it from the beginning, even when it is already loaded.
func (c *Controller) startLocked(track models.Track) {
	c.state.CurrentTrack = &track
	c.state.PlayerVisible = true
	c.state.CurrentTime = 0
	c.state.Duration = track.Length()
	c.loadLocked()
}

// loadLocked publishes Loading and releases the mutex for the duration of the device load.
func (c *Controller) loadLocked() {
	track := *c.state.CurrentTrack
	if !c.transition(Loading) {
		return
	}

	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.loads++
	token := c.loads
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelLoad = cancel
	c.generation = 0
	c.publishLocked()

	c.mu.Unlock()
	media, err := c.device.Load(ctx, track.AudioURL)
	c.mu.Lock()

	if token != c.loads || c.disposed {
		cancel()
		c.logger.Debug("load superseded", "track", track.ID)
		return
	}
	c.cancelLoad = nil
	cancel()

	if err != nil {
		c.logger.Error("failed to load track", "track", track.ID, "url", track.AudioURL, "error", err)
		c.transition(Error)
		return
	}
	c.generation = media.Generation
	if media.Duration > 0 {
		c.state.Duration = media.Duration
	}
	c.logger.Info("loaded track", "track", track.ID, "title", track.Title, "generation", media.Generation)
	c.playLocked()
}

// playLocked never surfaces device failures: a rejected play reverts to Paused.
func (c *Controller) playLocked() {
	if err := c.device.Play(c.ctx); err != nil {
		c.logger.Warn("playback prevented", "error", err)
		c.transition(Paused)
		return
	}
	c.transition(Playing)
}

// TogglePlayPause pauses a playing track, resumes a paused or finished one, and retries after an error.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()
	c.toggleLocked()
}

func (c *Controller) toggleLocked() {
	if c.state.CurrentTrack == nil {
		return
	}

	switch c.state.Transport {
	case Playing:
		c.device.Pause()
		c.transition(Paused)
	case Loading:
		return
	case Error:
		c.loadLocked()
	case Ended, Idle:
		c.seekLocked(0)
		c.playLocked()
	default:
		c.playLocked()
	}
}

// Seek moves the playback position, clamped to the track duration.
func (c *Controller) Seek(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()
	c.seekLocked(d)
}

func (c *Controller) seekLocked(d time.Duration) {
	d = shared.Clamp(d, 0, max(c.state.Duration, 0))
	if c.state.CurrentTrack != nil {
		if err := c.device.Seek(d); err != nil {
			c.logger.Warn("seek failed", "position", d, "error", err)
		}
	}
	c.state.CurrentTime = d
}

// SetVolume sets the volume level, clamped to [0, 1]. A muted session stays muted.
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()

	c.state.Volume = shared.Clamp(level, 0, 1)
	c.device.SetVolume(c.state.EffectiveVolume())
}

func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()

	c.state.Muted = !c.state.Muted
	c.device.SetVolume(c.state.EffectiveVolume())
}

// PlayPlaylist makes p the active playlist and plays the entry at start, or the first entry when
// start is out of range. Empty playlists are ignored.
func (c *Controller) PlayPlaylist(p *models.Playlist, start int) {
	if p.Len() == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()

	c.state.ActivePlaylist = p.Clone()
	if start < 0 || start >= p.Len() {
		start = 0
	}
	track := p.Entries[start].Track

	if c.state.IsCurrent(track.ID) {
		if c.state.Transport != Playing {
			c.toggleLocked()
		}
		return
	}
	c.startLocked(track)
}

// UpdateActivePlaylist replaces the active playlist when ids match, e.g. after it was reordered.
func (c *Controller) UpdateActivePlaylist(p *models.Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ActivePlaylist == nil || p == nil || c.state.ActivePlaylist.ID != p.ID {
		return
	}
	c.state.ActivePlaylist = p.Clone()
	c.publishLocked()
}

// PlayNextTrack restarts playback at the following playlist entry, wrapping around.
func (c *Controller) PlayNextTrack() {
	c.navigate(playlist.Next)
}

// PlayPreviousTrack restarts playback at the preceding playlist entry, wrapping around.
func (c *Controller) PlayPreviousTrack() {
	c.navigate(playlist.Previous)
}

type navigator func([]models.PlaylistEntry, string) (models.Track, bool)

func (c *Controller) navigate(step navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()
	c.navigateLocked(step)
}

func (c *Controller) navigateLocked(step navigator) bool {
	if c.state.ActivePlaylist.Len() == 0 || c.state.CurrentTrack == nil {
		return false
	}
	track, ok := step(c.state.ActivePlaylist.Entries, c.state.CurrentTrack.ID)
	if !ok {
		c.logger.Debug("navigation miss", "error", shared.ErrNavigationMiss, "track", c.state.CurrentTrack.ID)
		return false
	}
	c.startLocked(track)
	return true
}

// SetPlayerVisible shows or hides the player surfaces without touching playback.
func (c *Controller) SetPlayerVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()
	c.state.PlayerVisible = visible && c.state.CurrentTrack != nil
}

// HandleEvent applies one device notification. Events from a superseded load are dropped.
func (c *Controller) HandleEvent(ev audio.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Generation != c.generation {
		c.logger.Debug("dropping stale device event", "kind", ev.Kind, "generation", ev.Generation, "current", c.generation)
		return
	}
	defer c.publishLocked()

	switch ev.Kind {
	case audio.EventTimeUpdate:
		if c.state.CurrentTrack != nil {
			c.state.CurrentTime = ev.Time
		}
	case audio.EventLoadedMetadata:
		if ev.Duration > 0 {
			c.state.Duration = ev.Duration
		}
	case audio.EventEnded:
		c.endedLocked()
	case audio.EventError:
		c.logger.Error("device error", "error", ev.Err)
		c.transition(Error)
	}
}

func (c *Controller) endedLocked() {
	if c.state.CurrentTrack == nil || !c.transition(Ended) {
		return
	}
	if c.navigateLocked(playlist.Next) {
		return
	}
	c.seekLocked(0)
	c.transition(Idle)
}
