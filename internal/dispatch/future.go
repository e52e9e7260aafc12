// Package dispatch runs work off the caller's goroutine and hands the result
// back through a Future or a job registry.
package dispatch

import (
	"context"
	"fmt"
)

// Future holds the outcome of a function started with Go.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine. A panic in fn is turned into an error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("dispatch: panic: %v", r)
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is ready or ctx ends. Giving up on ctx does
// not stop fn.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls cb with the result on a separate goroutine once it is ready.
func (f *Future[T]) Then(cb func(T, error)) {
	go func() {
		<-f.done
		cb(f.val, f.err)
	}()
}
