package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/logging"
)

func TestPool_Submit(t *testing.T) {
	t.Run("Given a pool When many tasks are submitted Then all run before Shutdown returns", func(t *testing.T) {
		pool := New(context.Background(), logging.Discard(), 4)

		var ran atomic.Int64
		for i := 0; i < 500; i++ {
			if err := pool.Submit(func(ctx context.Context) { ran.Add(1) }); err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
		}

		if err := pool.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}
		if got := ran.Load(); got != 500 {
			t.Errorf("expected 500 tasks to run, got %d", got)
		}
	})

	t.Run("Given a saturated pool When Submit is called Then it does not block", func(t *testing.T) {
		pool := New(context.Background(), logging.Discard(), 1)
		release := make(chan struct{})

		_ = pool.Submit(func(ctx context.Context) { <-release })

		done := make(chan struct{})
		go func() {
			for i := 0; i < 100; i++ {
				_ = pool.Submit(func(ctx context.Context) {})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Submit blocked while workers were busy")
		}

		close(release)
		_ = pool.Shutdown(context.Background())
	})

	t.Run("Given a closed pool When Submit is called Then ErrPoolClosed is returned", func(t *testing.T) {
		pool := New(context.Background(), logging.Discard(), 2)
		_ = pool.Shutdown(context.Background())

		err := pool.Submit(func(ctx context.Context) {})
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
	})
}

func TestPool_Concurrency(t *testing.T) {
	t.Run("Given size N When tasks block Then at most N run at once", func(t *testing.T) {
		const size = 3
		pool := New(context.Background(), logging.Discard(), size)

		var (
			mu      sync.Mutex
			running int
			peak    int
		)
		for i := 0; i < 30; i++ {
			_ = pool.Submit(func(ctx context.Context) {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
			})
		}
		_ = pool.Shutdown(context.Background())

		if peak > size {
			t.Errorf("expected at most %d concurrent tasks, saw %d", size, peak)
		}
	})

	t.Run("Given a panicking task When it runs Then the worker survives", func(t *testing.T) {
		pool := New(context.Background(), logging.Discard(), 1)

		var ran atomic.Bool
		_ = pool.Submit(func(ctx context.Context) { panic("boom") })
		_ = pool.Submit(func(ctx context.Context) { ran.Store(true) })
		_ = pool.Shutdown(context.Background())

		if !ran.Load() {
			t.Error("expected task after panic to run")
		}
	})
}

func TestPool_ShutdownTimeout(t *testing.T) {
	pool := New(context.Background(), logging.Discard(), 1)
	release := make(chan struct{})
	defer close(release)

	_ = pool.Submit(func(ctx context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := pool.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPool_Pending(t *testing.T) {
	pool := New(context.Background(), logging.Discard(), 1)
	release := make(chan struct{})

	_ = pool.Submit(func(ctx context.Context) { <-release })
	for i := 0; i < 3; i++ {
		_ = pool.Submit(func(ctx context.Context) {})
	}

	deadline := time.Now().Add(time.Second)
	for pool.Pending() != 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := pool.Pending(); got != 3 {
		t.Errorf("expected 3 queued tasks behind the busy worker, got %d", got)
	}

	close(release)
	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := pool.Pending(); got != 0 {
		t.Errorf("expected an empty queue after Shutdown, got %d", got)
	}
}

func TestPool_TaskContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New(ctx, logging.Discard(), 1)

	seen := make(chan error, 1)
	_ = pool.Submit(func(ctx context.Context) {
		<-ctx.Done()
		seen <- ctx.Err()
	})
	cancel()

	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-seen; !errors.Is(err, context.Canceled) {
		t.Errorf("expected the task to observe cancellation, got %v", err)
	}
}
