package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap is a streamer wrapper that copies samples into a ring buffer
// for spectrum analysis. It passes audio through unchanged.
//
// A tap created by a [Speaker] stays idle (pure pass-through) until [Speaker.AttachTap] activates it.
type Tap struct {
	s       beep.Streamer
	mu      sync.Mutex
	active  bool
	buf     []float64
	pos     int
	size    int
	written uint64
}

// NewTap wraps a streamer with an active ring buffer of the given size.
func NewTap(s beep.Streamer, bufSize int) *Tap {
	t := &Tap{s: s}
	t.activate(bufSize)
	return t
}

func (t *Tap) activate(bufSize int) {
	if bufSize < 1 {
		bufSize = 1
	}
	t.mu.Lock()
	t.active = true
	t.buf = make([]float64, bufSize)
	t.size = bufSize
	t.pos = 0
	t.mu.Unlock()
}

// Stream passes audio through while capturing a mono mix into the ring buffer.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	if t.active {
		for i := range n {
			t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
			t.pos = (t.pos + 1) % t.size
		}
		t.written += uint64(n)
	}
	t.mu.Unlock()
	return n, ok
}

// Err returns the underlying streamer's error.
func (t *Tap) Err() error {
	return t.s.Err()
}

// Samples returns the last n samples from the ring buffer in chronological order.
func (t *Tap) Samples(n int) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	start := (t.pos - n + t.size) % t.size
	for i := range n {
		out[i] = t.buf[(start+i)%t.size]
	}
	return out
}

// Written returns the total number of samples captured so far.
func (t *Tap) Written() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Size returns the ring buffer capacity.
func (t *Tap) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}
