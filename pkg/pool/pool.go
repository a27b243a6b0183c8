package pool

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/lockfree"
	"github.com/ajitpratap0/objectpool/pkg/logger"
)

// Unbounded is the default object limit: the pool never refuses to construct.
const Unbounded = math.MaxInt

// Generator constructs a new pooled object. It is invoked only when the free
// set is empty and the limit allows another object.
type Generator[T any] func() (T, error)

// Releaser is implemented by pooled objects that hold resources which must be
// freed when the pool is disposed. Objects implementing io.Closer are
// released through Close instead when they do not implement Releaser.
type Releaser interface {
	Release()
}

// Pool is a generic object pool with a hard limit on the number of objects
// it will ever construct.
//
// Objects are kept in a lock-free free set while idle. Every constructed
// object is also recorded in the all set so Dispose can release it. The only
// lock is the narrow one guarding the limit check and the count increment;
// the generator always runs outside of it.
//
// A Pool must be created with New.
type Pool[T any] struct {
	name      string
	generator Generator[T]
	limit     int
	logger    *zap.Logger

	free *lockfree.Stack[T]
	all  *lockfree.Stack[T]

	mu    sync.Mutex
	count int

	closed atomic.Bool

	// source is reported as CreatedEvent.Pool; it is the pool itself unless
	// a decorator re-raises the event as its own.
	source any

	obsMu     sync.Mutex
	observers atomic.Pointer[[]Observer]

	stats struct {
		created         lockfree.Counter
		reused          lockfree.Counter
		limitRejections lockfree.Counter
		uses            lockfree.Counter
		failures        lockfree.Counter
		inUse           atomic.Int64
	}
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	// Created is the number of objects the generator successfully built
	Created int64 `json:"created"`
	// Reused is the number of checkouts served from the free set
	Reused int64 `json:"reused"`
	// InUse is the number of objects currently checked out
	InUse int64 `json:"in_use"`
	// Free is the number of idle objects in the free set
	Free int64 `json:"free"`
	// LimitRejections is the number of checkouts refused by the limit
	LimitRejections int64 `json:"limit_rejections"`
	// Uses is the number of work invocations
	Uses int64 `json:"uses"`
	// Failures is the number of work invocations that returned an error or panicked
	Failures int64 `json:"failures"`
}

type options struct {
	name      string
	limit     int
	logger    *zap.Logger
	observers []Observer
	source    any
}

// Option configures a Pool.
type Option func(*options)

// WithName sets the pool name used in logs, metrics and errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLimit caps the number of objects the pool will ever construct.
// Zero is allowed and makes every checkout fail; negative values are rejected
// by New.
func WithLimit(limit int) Option {
	return func(o *options) {
		o.limit = limit
	}
}

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver subscribes o to object-created events.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

func withEventSource(source any) Option {
	return func(o *options) {
		o.source = source
	}
}

// New creates a pool that builds objects with generator.
func New[T any](generator Generator[T], opts ...Option) (*Pool[T], error) {
	if generator == nil {
		return nil, invalidArgument("generator", "generator must not be nil")
	}

	o := options{limit: Unbounded}
	for _, opt := range opts {
		opt(&o)
	}

	if o.limit < 0 {
		return nil, invalidArgument("limit", fmt.Sprintf("limit must not be negative, got %d", o.limit))
	}
	if o.name == "" {
		o.name = defaultName[T]()
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}

	p := &Pool[T]{
		name:      o.name,
		generator: generator,
		limit:     o.limit,
		logger:    o.logger.With(zap.String("component", "object_pool"), zap.String("pool", o.name)),
		free:      lockfree.NewStack[T](),
		all:       lockfree.NewStack[T](),
		source:    o.source,
	}
	if p.source == nil {
		p.source = p
	}
	if len(o.observers) > 0 {
		observers := append([]Observer(nil), o.observers...)
		p.observers.Store(&observers)
	}

	return p, nil
}

func defaultName[T any]() string {
	return "pool[" + reflect.TypeOf((*T)(nil)).Elem().String() + "]"
}

// Use checks out an object, runs work with it and returns the object to the
// free set once work finishes. The object is returned exactly once on every
// path, including a panic in work, which is re-raised afterwards.
//
// Errors from the limit, the generator and work are returned unchanged.
func (p *Pool[T]) Use(work func(T) error) (err error) {
	if work == nil {
		return invalidArgument("work", "work must not be nil")
	}

	obj, err := p.take()
	if err != nil {
		return err
	}

	p.stats.uses.Inc()
	finished := false
	defer func() {
		if !finished || err != nil {
			p.stats.failures.Inc()
		}
		p.put(obj)
	}()

	err = work(obj)
	finished = true
	return err
}

// UseValue is the value-returning form of Pool.Use.
func UseValue[T, R any](p *Pool[T], work func(T) (R, error)) (R, error) {
	var zero R
	if p == nil {
		return zero, invalidArgument("pool", "pool must not be nil")
	}
	if work == nil {
		return zero, invalidArgument("work", "work must not be nil")
	}

	var result R
	err := p.Use(func(obj T) error {
		var werr error
		result, werr = work(obj)
		return werr
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// take hands out an idle object or constructs a new one.
func (p *Pool[T]) take() (T, error) {
	var zero T
	if p.closed.Load() {
		return zero, p.closedError()
	}

	if obj, ok := p.free.Pop(); ok {
		p.stats.reused.Inc()
		p.stats.inUse.Add(1)
		return obj, nil
	}

	count, err := p.reserve()
	if err != nil {
		return zero, err
	}

	created := false
	defer func() {
		if !created {
			p.unreserve()
		}
	}()

	obj, err := p.generator()
	if err != nil {
		return zero, err
	}
	created = true

	p.all.Push(obj)
	if p.closed.Load() {
		// Dispose ran while we were constructing; whichever of us drains the
		// all set releases obj.
		if rerr := p.releaseAll(); rerr != nil {
			p.logger.Error("failed to release object constructed during dispose", zap.Error(rerr))
		}
		return zero, p.closedError()
	}

	p.stats.created.Inc()
	p.stats.inUse.Add(1)
	p.logger.Debug("object created", zap.Int("count", count), zap.Int("limit", p.limit))
	p.notifyCreated(count)

	return obj, nil
}

// reserve claims one slot against the limit and returns the new count.
func (p *Pool[T]) reserve() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return 0, p.closedError()
	}
	if p.count >= p.limit {
		p.stats.limitRejections.Inc()
		return 0, p.limitReachedError()
	}
	p.count++
	return p.count, nil
}

// unreserve gives back a slot claimed by reserve. Once disposed the count
// has already been zeroed.
func (p *Pool[T]) unreserve() {
	p.mu.Lock()
	if !p.closed.Load() {
		p.count--
	}
	p.mu.Unlock()
}

// put returns obj to the free set. Objects coming back to a disposed pool
// are dropped; Dispose has already released them.
func (p *Pool[T]) put(obj T) {
	p.stats.inUse.Add(-1)
	if p.closed.Load() {
		return
	}
	p.free.Push(obj)
	if p.closed.Load() {
		p.free.Drain()
	}
}

// Dispose marks the pool disposed and releases every object it ever
// constructed, including objects still checked out. Count drops to zero. Objects implementing
// Releaser have Release called; otherwise io.Closer objects are closed.
// Release errors are aggregated. Calling Dispose more than once is a no-op.
func (p *Pool[T]) Dispose() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	p.count = 0
	p.mu.Unlock()

	p.free.Drain()
	err := p.releaseAll()
	if err != nil {
		p.logger.Error("failed to release pooled objects", zap.Error(err))
	}

	p.logger.Info("object pool disposed",
		zap.Int64("created", p.stats.created.Load()),
		zap.Int64("uses", p.stats.uses.Load()))

	return err
}

func (p *Pool[T]) releaseAll() error {
	var errs error
	for _, obj := range p.all.Drain() {
		errs = multierr.Append(errs, release(obj))
	}
	return errs
}

func release(obj any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrorTypeInternal, fmt.Sprintf("release panicked: %v", r))
		}
	}()

	switch v := obj.(type) {
	case Releaser:
		if !isNil(v) {
			v.Release()
		}
	case io.Closer:
		if !isNil(v) {
			return v.Close()
		}
	}
	return nil
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Limit returns the maximum number of objects the pool will construct.
func (p *Pool[T]) Limit() int {
	return p.limit
}

// Count returns the number of objects constructed or being constructed.
// It is zero once the pool is disposed.
func (p *Pool[T]) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Disposed reports whether Dispose has been called.
func (p *Pool[T]) Disposed() bool {
	return p.closed.Load()
}

// Stats returns a snapshot of pool activity.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Created:         p.stats.created.Load(),
		Reused:          p.stats.reused.Load(),
		InUse:           p.stats.inUse.Load(),
		Free:            int64(p.free.Len()),
		LimitRejections: p.stats.limitRejections.Load(),
		Uses:            p.stats.uses.Load(),
		Failures:        p.stats.failures.Load(),
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
