// Package ticker provides a cancellable periodic task.
package ticker

import (
	"context"
	"sync"
	"time"
)

// Task calls fn on a fixed interval between Start and Stop.
//
// A Task never reschedules itself: ticks come from one goroutine owned by Start,
// and Stop returns only once that goroutine has exited.
type Task struct {
	interval time.Duration
	fn       func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped task.
func New(interval time.Duration, fn func(context.Context)) *Task {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Task{interval: interval, fn: fn}
}

// Start begins ticking. Calling Start on a running task does nothing.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go t.run(ctx, done)
}

func (t *Task) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			// Stop may have won the race with this tick.
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx)
		}
	}
}

// Stop cancels the task and waits for any in-flight tick. Stopping a stopped task does nothing.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the task is between Start and Stop.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
