// Package workerpool runs blocking engine calls on a bounded number of
// goroutines and hands back futures for their results.
package workerpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many submitted tasks run at once.
type Pool struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
}

// New creates a pool running at most size tasks concurrently.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the pool's concurrency limit.
func (p *Pool) Size() int { return int(p.size) }

// InFlight returns the number of tasks currently holding a slot.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit schedules fn on the pool and returns immediately. The task waits for
// a free slot; if ctx ends first the future resolves with ctx's error and fn
// never runs.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		p.inFlight.Add(1)
		defer func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
			if r := recover(); r != nil {
				f.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the task finishes or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }
