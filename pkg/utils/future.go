package utils

import (
	"context"
	"sync"
)

// A single-assignment container for the outcome of an asynchronous operation.
// Exactly one of value or error is set, exactly once. Any number of goroutines
// may wait for the outcome and all of them observe the same result.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	value    T
	err      error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Returns a future that is already rejected with the given error.
func RejectedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

func (f *Future[T]) complete(value T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolved {
		panic(ErrAlreadyResolved)
	}

	f.resolved = true
	f.value = value
	f.err = err
	close(f.done)
}

// Resolve the future with a value.
// Panics if the future has already been resolved or rejected.
func (f *Future[T]) Resolve(value T) {
	f.complete(value, nil)
}

// Reject the future with an error.
// Panics if the future has already been resolved or rejected.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

// Channel that is closed when the future is resolved or rejected.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Returns true if the future has an outcome.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Block until the future has an outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Block until the future has an outcome or the context is done.
// Cancelling the context does not affect the future itself.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
