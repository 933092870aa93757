package spectrum

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/shared"
)

// TapAttacher is implemented by devices that expose a signal tap.
type TapAttacher interface {
	AttachTap(size int) (*audio.Tap, error)
}

// Registry hands out at most one [Analyzer] per device.
//
// A device tap can be attached once, so repeated acquisition has to return the analyzer created first.
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	analyzers map[TapAttacher]*Analyzer
	logger    *log.Logger
}

func NewRegistry(cfg Config, logger *log.Logger) *Registry {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Registry{cfg: cfg, analyzers: make(map[TapAttacher]*Analyzer), logger: logger}
}

// Acquire returns the analyzer bound to dev, attaching the tap on first use.
func (r *Registry) Acquire(dev TapAttacher) (*Analyzer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.analyzers[dev]; ok {
		return a, nil
	}

	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	tap, err := dev.AttachTap(r.cfg.FFTSize * 2)
	if errors.Is(err, shared.ErrTapConflict) {
		return nil, r.conflict(err)
	}
	if err != nil {
		return nil, err
	}

	a, err := New(tap, r.cfg)
	if err != nil {
		return nil, err
	}
	r.analyzers[dev] = a
	r.logger.Debug("attached analyzer", "fft_size", r.cfg.FFTSize, "smoothing", r.cfg.Smoothing)
	return a, nil
}

// Release forgets the analyzer bound to dev.
func (r *Registry) Release(dev TapAttacher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.analyzers, dev)
}

// conflict means a tap was attached outside the registry, which is a lifecycle bug.
func (r *Registry) conflict(err error) error {
	if strictTaps {
		panic(fmt.Sprintf("spectrum: tap attached twice: %v", err))
	}
	r.logger.Error("tap already attached outside the registry", "error", err)
	return err
}
