// Package future provides single-shot results completed by another
// goroutine.
package future

import (
	"context"
	"errors"
	"sync"
)

type result[T any] struct {
	v   T
	err error
}

// Future is a single-shot result that completes exactly once.
type Future[T any] struct {
	doneChannel chan struct{}
	res         result[T]
	once        sync.Once
}

// Pending returns an incomplete Future and the function that completes it.
// Only the first call to complete has an effect.
func Pending[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{doneChannel: make(chan struct{})}
	return f, f.complete
}

// FromValue creates an already-completed Future with a value.
func FromValue[T any](v T) *Future[T] {
	f, complete := Pending[T]()
	complete(v, nil)
	return f
}

// FromError creates an already-completed Future with an error.
func FromError[T any](err error) *Future[T] {
	f, complete := Pending[T]()
	var zero T
	complete(zero, err)
	return f
}

// Await blocks until completion or until ctx is done. Cancelling ctx only
// stops the wait; the work behind the Future keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.doneChannel:
		return f.res.v, f.res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the Future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.doneChannel }

// AwaitAll waits for every future and returns the values in order with
// all errors joined.
func AwaitAll[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	out := make([]T, len(futures))
	var errs []error
	for i, fut := range futures {
		v, err := fut.Await(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return out, errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
			continue
		}
		out[i] = v
	}
	return out, errors.Join(errs...)
}

// complete sets the result exactly once and closes doneChannel.
func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.res = result[T]{v: v, err: err}
		close(f.doneChannel)
	})
}
