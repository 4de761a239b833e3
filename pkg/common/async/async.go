// Package async provides a minimal one-shot future used to deliver the
// result of work executed on a background goroutine.
package async

import "context"

// Future holds the eventual result of an asynchronous computation.
// The result is delivered exactly once; every Wait call observes it.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Run starts fn on its own goroutine and returns a Future for its result.
func Run[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Resolved returns an already-completed Future. Useful when a validation
// failure must be delivered through the asynchronous path.
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Wait blocks until the result is available or ctx is done. On ctx
// cancellation the zero value and ctx.Err() are returned; the computation
// itself is not interrupted beyond whatever ctx it captured.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }
