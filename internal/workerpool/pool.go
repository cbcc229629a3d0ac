// Package workerpool runs lifecycle tasks on a bounded pond pool.
//
// The pond queue is unbounded: Submit never blocks and never rejects while the
// pool is open. Only the number of concurrently running tasks is bounded.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/cashflow/payment-lifecycle/internal/metrics"
)

// ErrPoolClosed is returned by Submit after Shutdown has been called
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of work. ctx is the pool's base context.
type Task func(ctx context.Context)

// Pool bounds concurrent tasks and hands each the pool's base context
type Pool struct {
	log  *slog.Logger
	ctx  context.Context
	pool pond.Pool

	mu     sync.Mutex
	closed bool
}

// New starts a pool of at most size concurrent workers. Tasks receive ctx as
// their context; cancelling it does not stop the pool.
func New(ctx context.Context, log *slog.Logger, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		log:  log,
		ctx:  ctx,
		pool: pond.NewPool(size),
	}
}

// Submit queues t without blocking. It fails only once Shutdown has started.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.pool.Submit(func() { p.run(t) })
	p.reportDepth()
	return nil
}

// Pending returns the number of queued tasks not yet picked up by a worker
func (p *Pool) Pending() int {
	return int(p.pool.WaitingTasks())
}

// Shutdown stops intake and waits for queued and running tasks to finish.
// It returns ctx.Err() if ctx expires first; workers keep draining in that case.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.pool.StopAndWait()
		close(done)
	}()

	select {
	case <-done:
		metrics.PoolQueueDepth.Set(0)
		return nil
	case <-ctx.Done():
		p.log.Warn("worker pool shutdown timed out", "pending", p.Pending())
		return ctx.Err()
	}
}

func (p *Pool) run(t Task) {
	defer p.reportDepth()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker task panicked", "panic", r)
		}
	}()
	t(p.ctx)
}

func (p *Pool) reportDepth() {
	metrics.PoolQueueDepth.Set(float64(p.pool.WaitingTasks()))
}
