package audio

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"golang.org/x/time/rate"
)

// Output is the process-wide sink the playback chain is played into.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
}

// SystemOutput drives the platform speaker.
type SystemOutput struct{}

func (SystemOutput) Init(sr beep.SampleRate, n int) error { return speaker.Init(sr, n) }
func (SystemOutput) Play(s beep.Streamer)                 { speaker.Play(s) }
func (SystemOutput) Lock()                                { speaker.Lock() }
func (SystemOutput) Unlock()                              { speaker.Unlock() }
func (SystemOutput) Clear()                               { speaker.Clear() }

// SpeakerOpts configures a [Speaker].
type SpeakerOpts struct {
	SampleRate int
	Buffer     time.Duration
	TimeUpdate time.Duration
	Volume     float64
	Output     Output
	HTTPClient *http.Client
	Logger     *log.Logger

	// MaxDownload caps the bytes buffered for one remote track. Defaults to [DefaultMaxDownload].
	MaxDownload int64
}

// Speaker is the beep-backed [Device].
type Speaker struct {
	mu     sync.Mutex
	opts   SpeakerOpts
	output Output
	rate   beep.SampleRate

	src  *source
	ctrl *beep.Ctrl
	tap  *Tap
	vol  *effects.Volume

	level       float64
	started     bool
	playing     bool
	tapAttached bool
	closed      bool

	fetch    fetcher
	events   chan Event
	metadata chan Media
	updates  rate.Sometimes
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *log.Logger
}

// NewSpeaker builds the persistent chain and starts the event monitor.
// The platform output is opened lazily on the first successful [Speaker.Play].
func NewSpeaker(opts SpeakerOpts) *Speaker {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100 * time.Millisecond
	}
	if opts.TimeUpdate <= 0 {
		opts.TimeUpdate = 250 * time.Millisecond
	}
	if opts.Output == nil {
		opts.Output = SystemOutput{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	sr := beep.SampleRate(opts.SampleRate)
	src := newSource(sr)
	ctrl := &beep.Ctrl{Streamer: src, Paused: true}
	tap := &Tap{s: ctrl}
	vol := &effects.Volume{Streamer: tap, Base: 2}

	s := &Speaker{
		opts:     opts,
		output:   opts.Output,
		rate:     sr,
		src:      src,
		ctrl:     ctrl,
		tap:      tap,
		vol:      vol,
		fetch:    fetcher{client: opts.HTTPClient, limit: opts.MaxDownload}.withDefaults(),
		events:   make(chan Event, 16),
		metadata: make(chan Media, 1),
		updates:  rate.Sometimes{Interval: opts.TimeUpdate},
		done:     make(chan struct{}),
		logger:   opts.Logger,
	}
	s.applyVolume(shared.Clamp(opts.Volume, 0, 1))

	s.wg.Add(1)
	go s.monitor()
	return s
}

// locked runs fn with the output's lock held once the output is streaming the chain.
func (s *Speaker) locked(fn func()) {
	if s.started {
		s.output.Lock()
		defer s.output.Unlock()
	}
	fn()
}

// Load decodes the resource and swaps it into the running chain.
// The chain is never rebuilt, so an attached [Tap] keeps observing.
// Decoding happens outside the device lock; a load cancelled in the meantime is discarded.
func (s *Speaker) Load(ctx context.Context, url string) (Media, error) {
	res, err := s.fetch.load(ctx, url)
	if err != nil {
		return Media{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		res.Close()
		return Media{}, fmt.Errorf("%w: device closed", shared.ErrDevice)
	}
	if err := ctx.Err(); err != nil {
		res.Close()
		return Media{}, err
	}

	s.locked(func() { s.ctrl.Paused = true })
	s.playing = false
	prev, gen := s.src.swap(res)
	if err := prev.Close(); err != nil {
		s.logger.Warn("closing previous resource", "error", err)
	}

	media := Media{Generation: gen, Duration: res.Duration()}
	select {
	case <-s.metadata:
	default:
	}
	s.metadata <- media
	s.logger.Debug("loaded resource", "url", url, "generation", gen, "rate", res.format.SampleRate, "duration", media.Duration)
	return media, nil
}

// Play resumes output, opening the platform speaker on first use.
func (s *Speaker) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: device closed", shared.ErrDevice)
	}
	if !s.src.loaded() {
		return shared.ErrNoResource
	}

	if !s.started {
		if err := s.output.Init(s.rate, s.rate.N(s.opts.Buffer)); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrPlaybackBlocked, err)
		}
		s.output.Play(s.vol)
		s.started = true
	}

	s.locked(func() { s.ctrl.Paused = false })
	s.playing = true
	return nil
}

func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked(func() { s.ctrl.Paused = true })
	s.playing = false
}

func (s *Speaker) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.locked(func() { err = s.src.seek(d) })
	if err != nil {
		return fmt.Errorf("%w: seeking: %v", shared.ErrDevice, err)
	}
	return nil
}

func (s *Speaker) Position() time.Duration {
	return s.src.position()
}

func (s *Speaker) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetVolume maps a linear level in [0, 1] onto the base-2 volume effect.
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked(func() { s.applyVolume(shared.Clamp(level, 0, 1)) })
}

func (s *Speaker) applyVolume(level float64) {
	s.level = level
	if level <= 0 {
		s.vol.Silent = true
		return
	}
	s.vol.Silent = false
	s.vol.Volume = math.Log2(level)
}

func (s *Speaker) Events() <-chan Event {
	return s.events
}

// AttachTap activates the chain's tap with a ring buffer of the given size.
func (s *Speaker) AttachTap(size int) (*Tap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tapAttached {
		return nil, shared.ErrTapConflict
	}
	s.tap.activate(size)
	s.tapAttached = true
	return s.tap, nil
}

// Close stops the monitor, releases the bound resource and closes the event channel.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.locked(func() { s.ctrl.Paused = true })
	if s.started {
		s.output.Clear()
	}
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	close(s.events)
	return s.src.close()
}

func (s *Speaker) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Speaker) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// monitor is the only sender on the event channel.
func (s *Speaker) monitor() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TimeUpdate / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case m := <-s.metadata:
			s.emit(LoadedMetadata(m.Duration).WithGeneration(m.Generation))
		case c := <-s.src.done:
			if c.generation != s.src.currentGeneration() {
				continue
			}
			s.mu.Lock()
			s.playing = false
			s.mu.Unlock()
			if c.err != nil {
				s.logger.Error("stream failed", "error", c.err)
				s.emit(Failed(fmt.Errorf("%w: %v", shared.ErrDevice, c.err)).WithGeneration(c.generation))
				continue
			}
			s.emit(TimeUpdate(s.Position()).WithGeneration(c.generation))
			s.emit(Ended().WithGeneration(c.generation))
		case <-ticker.C:
			if s.isPlaying() {
				s.updates.Do(func() {
					pos, gen := s.src.snapshot()
					s.emit(TimeUpdate(pos).WithGeneration(gen))
				})
			}
		}
	}
}
