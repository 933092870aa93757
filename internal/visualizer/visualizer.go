package visualizer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/spectrum"
	"github.com/desertthunder/serenitune/internal/ticker"
)

// Source yields spectrum frames. [spectrum.Analyzer] satisfies it.
type Source interface {
	Snapshot() spectrum.Frame
}

// Visualizer binds a renderer to an analyzer through a cancellable render tick.
//
// The tick runs only while the visualizer is enabled, has a source attached and is not closed.
// Each tick stores the rendered frame and signals [Visualizer.Updates] without blocking.
type Visualizer struct {
	renderer *Renderer
	task     *ticker.Task
	logger   *log.Logger

	// reconcile is serialized separately so Stop can wait on a tick that needs mu.
	control sync.Mutex

	mu      sync.Mutex
	source  Source
	enabled bool
	closed  bool
	width   int
	latest  string
	frames  uint64

	updates chan struct{}
}

// New creates an enabled, detached visualizer.
func New(cfg Config, logger *log.Logger) (*Visualizer, error) {
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	v := &Visualizer{
		renderer: r,
		logger:   logger,
		enabled:  true,
		updates:  make(chan struct{}, 1),
	}
	v.task = ticker.New(time.Second/time.Duration(r.cfg.FPS), v.tick)
	return v, nil
}

// Attach binds a source and starts ticking if enabled.
func (v *Visualizer) Attach(s Source) {
	v.mu.Lock()
	v.source = s
	v.mu.Unlock()
	v.reconcile()
}

// Detach unbinds the source, e.g. on track change, and falls back to the placeholder.
func (v *Visualizer) Detach() {
	v.mu.Lock()
	v.source = nil
	v.mu.Unlock()
	v.reconcile()

	v.mu.Lock()
	v.latest = ""
	v.mu.Unlock()
}

func (v *Visualizer) SetEnabled(enabled bool) {
	v.mu.Lock()
	v.enabled = enabled
	v.mu.Unlock()
	v.reconcile()
}

// Toggle flips visibility and reports the new state.
func (v *Visualizer) Toggle() bool {
	v.mu.Lock()
	v.enabled = !v.enabled
	enabled := v.enabled
	v.mu.Unlock()
	v.reconcile()
	return enabled
}

// Close stops the tick for good. Later calls to Attach or SetEnabled do not restart it.
func (v *Visualizer) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.reconcile()
}

func (v *Visualizer) SetWidth(width int) {
	v.mu.Lock()
	v.width = width
	v.mu.Unlock()
}

func (v *Visualizer) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled && !v.closed
}

// Running reports whether the render tick is scheduled.
func (v *Visualizer) Running() bool {
	return v.task.Running()
}

// Updates signals that a new frame was rendered. Signals coalesce.
func (v *Visualizer) Updates() <-chan struct{} {
	return v.updates
}

// Frames counts rendered frames.
func (v *Visualizer) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// View returns the latest rendered frame, the placeholder when nothing is attached, or "" when hidden.
func (v *Visualizer) View() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case !v.enabled || v.closed:
		return ""
	case v.source == nil || v.latest == "":
		return v.renderer.Placeholder(v.width)
	default:
		return v.latest
	}
}

func (v *Visualizer) reconcile() {
	v.control.Lock()
	defer v.control.Unlock()

	v.mu.Lock()
	run := v.enabled && v.source != nil && !v.closed
	v.mu.Unlock()

	switch {
	case run && !v.task.Running():
		v.task.Start(context.Background())
		v.logger.Debug("visualizer started")
	case !run && v.task.Running():
		v.task.Stop()
		v.logger.Debug("visualizer stopped")
	}
}

func (v *Visualizer) tick(ctx context.Context) {
	v.mu.Lock()
	src, width := v.source, v.width
	v.mu.Unlock()
	if src == nil {
		return
	}

	out := v.renderer.Render(src.Snapshot(), width)

	v.mu.Lock()
	if v.source == src {
		v.latest = out
		v.frames++
	}
	v.mu.Unlock()

	select {
	case v.updates <- struct{}{}:
	default:
	}
}
