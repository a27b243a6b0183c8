package pool

import (
	"io"

	"go.uber.org/multierr"
)

// ShimGenerator builds a disposable facade over a checked-out object.
type ShimGenerator[T any, S io.Closer] func(T) (S, error)

// ShimmedPool decorates a Pool so that callers never see the pooled object
// directly. Every checkout builds a fresh shim from the object, hands the
// shim to the caller and closes it before the object goes back to the free
// set.
type ShimmedPool[T any, S io.Closer] struct {
	pool *Pool[T]
	shim ShimGenerator[T, S]
}

// NewShimmed creates a shimmed pool with its own inner pool. Object-created
// events of the inner pool are reported with the shimmed pool as source.
func NewShimmed[T any, S io.Closer](generator Generator[T], shim ShimGenerator[T, S], opts ...Option) (*ShimmedPool[T, S], error) {
	if shim == nil {
		return nil, invalidArgument("shim_generator", "shim generator must not be nil")
	}

	sp := &ShimmedPool[T, S]{shim: shim}
	opts = append(opts[:len(opts):len(opts)], withEventSource(sp))
	inner, err := New(generator, opts...)
	if err != nil {
		return nil, err
	}
	sp.pool = inner
	return sp, nil
}

// Shim decorates an existing pool. Events keep the inner pool as source.
func Shim[T any, S io.Closer](inner *Pool[T], shim ShimGenerator[T, S]) (*ShimmedPool[T, S], error) {
	if inner == nil {
		return nil, invalidArgument("pool", "pool must not be nil")
	}
	if shim == nil {
		return nil, invalidArgument("shim_generator", "shim generator must not be nil")
	}
	return &ShimmedPool[T, S]{pool: inner, shim: shim}, nil
}

// Use checks out an object, wraps it in a new shim and runs work with the
// shim. The shim is closed on every path, then the object is returned to the
// inner pool. A shim generator failure skips work but still returns the
// object. A Close error is appended after the work error.
func (sp *ShimmedPool[T, S]) Use(work func(S) error) error {
	if work == nil {
		return invalidArgument("work", "work must not be nil")
	}

	return sp.pool.Use(func(obj T) (err error) {
		s, err := sp.shim(obj)
		defer func() {
			if !isNil(s) {
				err = multierr.Append(err, s.Close())
			}
		}()
		if err != nil {
			return err
		}
		return work(s)
	})
}

// UseShimmedValue is the value-returning form of ShimmedPool.Use.
func UseShimmedValue[T any, S io.Closer, R any](sp *ShimmedPool[T, S], work func(S) (R, error)) (R, error) {
	var zero R
	if sp == nil {
		return zero, invalidArgument("pool", "pool must not be nil")
	}
	if work == nil {
		return zero, invalidArgument("work", "work must not be nil")
	}

	var result R
	err := sp.Use(func(s S) error {
		var werr error
		result, werr = work(s)
		return werr
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// Pool returns the inner pool.
func (sp *ShimmedPool[T, S]) Pool() *Pool[T] {
	return sp.pool
}

// AddObserver subscribes o to object-created events of the inner pool.
func (sp *ShimmedPool[T, S]) AddObserver(o Observer) {
	sp.pool.AddObserver(o)
}

// Name returns the inner pool name.
func (sp *ShimmedPool[T, S]) Name() string {
	return sp.pool.Name()
}

// Limit returns the inner pool limit.
func (sp *ShimmedPool[T, S]) Limit() int {
	return sp.pool.Limit()
}

// Count returns the inner pool object count.
func (sp *ShimmedPool[T, S]) Count() int {
	return sp.pool.Count()
}

// Stats returns the inner pool statistics.
func (sp *ShimmedPool[T, S]) Stats() Stats {
	return sp.pool.Stats()
}

// Disposed reports whether the inner pool has been disposed.
func (sp *ShimmedPool[T, S]) Disposed() bool {
	return sp.pool.Disposed()
}

// Dispose disposes the inner pool.
func (sp *ShimmedPool[T, S]) Dispose() error {
	return sp.pool.Dispose()
}
