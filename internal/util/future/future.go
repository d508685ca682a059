// Package future provides a single-shot result that is completed once by a
// producer and awaited by any number of consumers. The journal hands one
// out per queued write.
package future

import (
	"context"
	"sync"
	"time"
)

// Future completes exactly once with a value or an error.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Pending returns an incomplete Future and the function that completes it.
// Calls after the first have no effect.
func Pending[T any]() (*Future[T], func(T, error)) {
	f := newFuture[T]()
	return f, f.complete
}

// Go runs fn on its own goroutine and completes the Future with its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, complete := Pending[T]()
	go func() { complete(fn()) }()
	return f
}

// FromValue returns a Future already completed with v.
func FromValue[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// FromError returns a Future already failed with err.
func FromError[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Await blocks until the Future completes.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitTimeout waits up to d. ok is false if d elapsed first.
func (f *Future[T]) AwaitTimeout(d time.Duration) (v T, err error, ok bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.done:
		return f.value, f.err, true
	case <-t.C:
		return v, nil, false
	}
}

// AwaitContext waits for completion or for ctx to be done, whichever is
// first.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the Future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// All collects the results of fs in order. It fails with the first error
// in that order.
func All[T any](fs ...*Future[T]) *Future[[]T] {
	return Go(func() ([]T, error) {
		out := make([]T, len(fs))
		for i, f := range fs {
			v, err := f.Await()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}
