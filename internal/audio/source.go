package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// resource bundles everything bound for a single loaded track.
type resource struct {
	stream beep.StreamSeekCloser
	format beep.Format
	url    string
}

// Close releases the decoder and its underlying reader.
func (r *resource) Close() error {
	if r == nil || r.stream == nil {
		return nil
	}
	return r.stream.Close()
}

// Duration is the decoded length, or zero when the decoder cannot tell.
func (r *resource) Duration() time.Duration {
	if r == nil || r.stream == nil {
		return 0
	}
	if n := r.stream.Len(); n > 0 {
		return r.format.SampleRate.D(n)
	}
	return 0
}

// completion is sent when the bound resource drains or fails.
type completion struct {
	generation uint64
	err        error
}

// source is the swappable head of the playback chain.
//
// It always reports ok, emitting silence when nothing is bound or the bound resource is drained,
// so the chain downstream of it never finishes.
type source struct {
	mu         sync.Mutex
	rate       beep.SampleRate
	current    *resource
	streamer   beep.Streamer
	drained    bool
	generation uint64
	done       chan completion
}

func newSource(rate beep.SampleRate) *source {
	return &source{rate: rate, done: make(chan completion, 1)}
}

// swap binds res and returns the resource it replaced. The caller owns closing it.
func (s *source) swap(res *resource) (*resource, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = res
	s.generation++
	s.drained = false
	s.rebuildLocked()
	return prev, s.generation
}

func (s *source) rebuildLocked() {
	if s.current == nil {
		s.streamer = nil
		return
	}
	if s.current.format.SampleRate == s.rate {
		s.streamer = s.current.stream
		return
	}
	s.streamer = beep.Resample(4, s.current.format.SampleRate, s.rate, s.current.stream)
}

func (s *source) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil || s.drained {
		clear(samples)
		return len(samples), true
	}

	n, ok := s.streamer.Stream(samples)
	clear(samples[n:])
	if !ok {
		s.drained = true
		s.notifyLocked(completion{generation: s.generation, err: s.current.stream.Err()})
	}
	return len(samples), true
}

func (s *source) Err() error { return nil }

// notifyLocked keeps only the newest completion.
func (s *source) notifyLocked(c completion) {
	select {
	case <-s.done:
	default:
	}
	select {
	case s.done <- c:
	default:
	}
}

func (s *source) loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *source) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// seek moves the bound resource to d, clamped to its length, and re-arms a drained stream.
func (s *source) seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	pos := s.current.format.SampleRate.N(d)
	if pos < 0 {
		pos = 0
	}
	if n := s.current.stream.Len(); n > 0 && pos >= n {
		pos = n - 1
	}
	if err := s.current.stream.Seek(pos); err != nil {
		return err
	}
	s.drained = false
	s.rebuildLocked()
	return nil
}

// snapshot reads the position together with the generation it belongs to.
func (s *source) snapshot() (time.Duration, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, s.generation
	}
	return s.current.format.SampleRate.D(s.current.stream.Position()), s.generation
}

func (s *source) position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.format.SampleRate.D(s.current.stream.Position())
}

func (s *source) close() error {
	prev, _ := s.swap(nil)
	return prev.Close()
}
