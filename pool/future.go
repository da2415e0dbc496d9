package pool

import (
	"context"
	"fmt"
)

// Future is the pending result of a task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go submits fn to s and returns a Future for its result. If the submission
// fails, the Future resolves immediately with that error.
func Go[T any](s Submitter, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	task := func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("pool: task panicked: %v", r)
			}
		}()
		f.val, f.err = fn()
	}
	if err := s.Submit(task); err != nil {
		f.err = err
		close(f.done)
	}
	return f
}

// Resolved returns a Future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await blocks until the result is available or ctx is done. Cancelling ctx
// does not stop the task.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
