package ticker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTask(t *testing.T) {
	t.Run("ticks while running", func(t *testing.T) {
		var n atomic.Int32
		task := New(time.Millisecond, func(context.Context) { n.Add(1) })
		task.Start(context.Background())
		defer task.Stop()

		deadline := time.Now().Add(2 * time.Second)
		for n.Load() < 3 {
			if time.Now().After(deadline) {
				t.Fatalf("got %d ticks, want at least 3", n.Load())
			}
			time.Sleep(time.Millisecond)
		}
	})

	t.Run("never fires after stop returns", func(t *testing.T) {
		var n atomic.Int32
		task := New(time.Millisecond, func(context.Context) { n.Add(1) })
		task.Start(context.Background())
		time.Sleep(10 * time.Millisecond)
		task.Stop()

		after := n.Load()
		time.Sleep(20 * time.Millisecond)
		if got := n.Load(); got != after {
			t.Errorf("ticked %d times after Stop", got-after)
		}
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		task := New(time.Millisecond, func(context.Context) {})
		task.Stop()
		task.Start(context.Background())
		task.Start(context.Background())
		if !task.Running() {
			t.Error("Running() = false after Start")
		}
		task.Stop()
		task.Stop()
		if task.Running() {
			t.Error("Running() = true after Stop")
		}
	})

	t.Run("parent cancellation stops ticks", func(t *testing.T) {
		var n atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		task := New(time.Millisecond, func(context.Context) { n.Add(1) })
		task.Start(ctx)
		cancel()
		task.Stop()

		after := n.Load()
		time.Sleep(10 * time.Millisecond)
		if n.Load() != after {
			t.Error("ticked after parent context was cancelled")
		}
	})

	t.Run("restart after stop", func(t *testing.T) {
		var n atomic.Int32
		task := New(time.Millisecond, func(context.Context) { n.Add(1) })
		task.Start(context.Background())
		task.Stop()
		task.Start(context.Background())
		defer task.Stop()

		deadline := time.Now().Add(2 * time.Second)
		for n.Load() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("restarted task never ticked")
			}
			time.Sleep(time.Millisecond)
		}
	})
}
