// Package worker runs blocking file I/O off the caller's goroutine on a
// bounded pool and hands results back over channels.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// DefaultSize is used when a size below 1 is requested.
const DefaultSize = 8

// Pool is a bounded goroutine pool. The zero value is not usable; use New.
type Pool struct {
	pool   *ants.Pool
	logger *logging.Logger
	once   sync.Once
}

// New creates a pool running at most size tasks concurrently. A panicking
// task is logged and does not take down the pool.
func New(size int, logger *logging.Logger) (*Pool, error) {
	if size < 1 {
		size = DefaultSize
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("worker")

	p, err := ants.NewPool(size, ants.WithPanicHandler(func(r any) {
		logger.Error("worker task panicked", "panic", fmt.Sprint(r))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Pool{pool: p, logger: logger}, nil
}

// Submit queues fn. It blocks while the pool is saturated.
func (p *Pool) Submit(fn func()) error {
	if err := p.pool.Submit(fn); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}
	return nil
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release stops accepting work. Tasks already running finish.
// Safe to call multiple times.
func (p *Pool) Release() {
	p.once.Do(p.pool.Release)
}

// Run executes fn on the pool and waits for its result. If ctx is canceled
// first, Run returns a cancellation error while fn keeps running to
// completion in the background.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	err := p.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("worker task panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	})
	if err != nil {
		return zero, err
	}

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, errors.NewCanceledError("background task", ctx.Err())
	}
}

// Go executes fn on the pool and returns a channel that receives its error
// exactly once.
func Go(ctx context.Context, p *Pool, fn func(context.Context) error) <-chan error {
	out := make(chan error, 1)
	if err := p.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				out <- fmt.Errorf("worker task panicked: %v", r)
			}
		}()
		out <- fn(ctx)
	}); err != nil {
		out <- err
	}
	return out
}
