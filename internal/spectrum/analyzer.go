package spectrum

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/desertthunder/serenitune/internal/shared"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// SampleSource is the read side of a signal tap.
type SampleSource interface {
	Samples(n int) []float64
	Written() uint64
}

// Config holds analyzer settings.
type Config struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

// FromShared converts the analyzer section of the application config.
func FromShared(c shared.AnalyzerConfig) Config {
	return Config{
		FFTSize:     c.FFTSize,
		Smoothing:   c.Smoothing,
		MinDecibels: c.MinDecibels,
		MaxDecibels: c.MaxDecibels,
	}
}

// Validate checks the FFT size is a power of two and the decibel range is ordered.
func (c Config) Validate() error {
	if c.FFTSize < 32 || c.FFTSize > 32768 || bits.OnesCount(uint(c.FFTSize)) != 1 {
		return fmt.Errorf("%w: fft size %d must be a power of two between 32 and 32768", shared.ErrInvalidConfig, c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing %v must be within [0, 1]", shared.ErrInvalidConfig, c.Smoothing)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return fmt.Errorf("%w: min decibels %v must be below max decibels %v", shared.ErrInvalidConfig, c.MinDecibels, c.MaxDecibels)
	}
	return nil
}

// Frame is one snapshot of normalized magnitudes, one value per frequency bin.
type Frame []float64

// Peak returns the index and value of the loudest bin, or -1 for an empty frame.
func (f Frame) Peak() (int, float64) {
	idx, peak := -1, 0.0
	for i, v := range f {
		if idx < 0 || v > peak {
			idx, peak = i, v
		}
	}
	return idx, peak
}

// Analyzer computes frames from a [SampleSource]. It is safe for concurrent use.
type Analyzer struct {
	mu  sync.Mutex
	src SampleSource
	cfg Config

	fft      *fourier.FFT
	coeffs   []float64
	scratch  []float64
	spectrum []complex128
	smoothed []float64
	frame    Frame

	written  uint64
	computed bool
}

// New creates an analyzer reading from src.
func New(src SampleSource, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	coeffs := make([]float64, cfg.FFTSize)
	for i := range coeffs {
		coeffs[i] = 1
	}

	bins := cfg.FFTSize / 2
	return &Analyzer{
		src:      src,
		cfg:      cfg,
		fft:      fourier.NewFFT(cfg.FFTSize),
		coeffs:   window.Blackman(coeffs),
		scratch:  make([]float64, cfg.FFTSize),
		spectrum: make([]complex128, cfg.FFTSize/2+1),
		smoothed: make([]float64, bins),
		frame:    make(Frame, bins),
	}, nil
}

// Bins is the number of values in every frame.
func (a *Analyzer) Bins() int { return a.cfg.FFTSize / 2 }

// Config returns the analyzer settings.
func (a *Analyzer) Config() Config { return a.cfg }

// Snapshot returns the current frame without blocking on the audio path.
// When nothing new was written since the last call the cached frame is returned.
func (a *Analyzer) Snapshot() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	written := a.src.Written()
	if !a.computed || written != a.written {
		a.compute()
		a.written = written
		a.computed = true
	}

	out := make(Frame, len(a.frame))
	copy(out, a.frame)
	return out
}

func (a *Analyzer) compute() {
	n := a.cfg.FFTSize
	samples := a.src.Samples(n)
	clear(a.scratch)
	// Right-align so a short history still reads as the most recent audio.
	offset := n - len(samples)
	for i, v := range samples {
		a.scratch[offset+i] = v * a.coeffs[offset+i]
	}

	a.spectrum = a.fft.Coefficients(a.spectrum, a.scratch)

	tau := a.cfg.Smoothing
	span := a.cfg.MaxDecibels - a.cfg.MinDecibels
	for k := range a.smoothed {
		mag := cmplxAbs(a.spectrum[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		db := 20 * math.Log10(a.smoothed[k])
		a.frame[k] = shared.Clamp((db-a.cfg.MinDecibels)/span, 0, 1)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
