// Package registry provides a concurrency-safe, lazily populated keyed registry
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/logger"
)

// Disposer is implemented by values that must be torn down when the registry
// is closed, such as object pools.
type Disposer interface {
	Dispose() error
}

// Factory builds the value for a key on first access.
type Factory[K comparable, V any] func(key K) (V, error)

// Registry maps keys to lazily created values. Each key's factory runs at most
// once successfully; a failed factory leaves no entry behind so a later call
// may retry.
type Registry[K comparable, V any] struct {
	name    string
	entries map[K]V
	closed  bool
	mu      sync.RWMutex
	logger  *zap.Logger
}

// New creates an empty registry. The name is used in logs and errors.
func New[K comparable, V any](name string) *Registry[K, V] {
	return &Registry[K, V]{
		name:    name,
		entries: make(map[K]V),
		logger:  logger.Get().With(zap.String("component", "registry"), zap.String("registry", name)),
	}
}

// WithLogger replaces the registry logger and returns the registry.
func (r *Registry[K, V]) WithLogger(l *zap.Logger) *Registry[K, V] {
	r.mu.Lock()
	r.logger = l.With(zap.String("component", "registry"), zap.String("registry", r.name))
	r.mu.Unlock()
	return r
}

// GetOrCreate returns the value for key, calling factory to build it if no
// value exists yet. Concurrent callers for the same key receive the same value.
func (r *Registry[K, V]) GetOrCreate(key K, factory Factory[K, V]) (V, error) {
	r.mu.RLock()
	v, ok := r.entries[key]
	closed := r.closed
	r.mu.RUnlock()
	if ok {
		return v, nil
	}
	if closed {
		var zero V
		return zero, r.closedError()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double check after acquiring write lock
	if v, ok := r.entries[key]; ok {
		return v, nil
	}
	if r.closed {
		var zero V
		return zero, r.closedError()
	}
	if factory == nil {
		var zero V
		return zero, errors.New(errors.ErrorTypeValidation, "factory must not be nil").
			WithDetail("argument", "factory")
	}

	v, err := factory(key)
	if err != nil {
		return v, err
	}

	r.entries[key] = v
	r.logger.Debug("registry entry created", zap.Any("key", key), zap.Int("entries", len(r.entries)))
	return v, nil
}

// Get returns the value for key if it has been created.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[key]
	return v, ok
}

// Keys returns the keys currently present, in no particular order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for every entry until fn returns false. fn must not call
// back into the registry's mutating methods.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k, v := range r.entries {
		if !fn(k, v) {
			return
		}
	}
}

// Close removes every entry and disposes values implementing Disposer.
// Further GetOrCreate calls fail. Close is idempotent.
func (r *Registry[K, V]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[K]V)
	r.mu.Unlock()

	var errs error
	for k, v := range entries {
		d, ok := any(v).(Disposer)
		if !ok {
			continue
		}
		if err := d.Dispose(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dispose %v: %w", k, err))
		}
	}

	if errs != nil {
		r.logger.Error("failed to dispose registry entries", zap.Error(errs))
	}
	r.logger.Info("registry closed", zap.Int("entries", len(entries)))
	return errs
}

func (r *Registry[K, V]) closedError() error {
	return errors.New(errors.ErrorTypeClosed, fmt.Sprintf("registry %s is closed", r.name))
}
