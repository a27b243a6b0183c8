// Package testutil provides testing utilities for objectpool
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger returns a development logger that writes through t, so pool
// and client logs show up next to the failing assertion.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext returns a context that ends when t finishes or after a minute,
// whichever comes first.
func TestContext(t testing.TB) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx, cancel
}

// AssertEventually polls condition every millisecond and fails t if it is
// still false after timeout. Used to wait for objects coming back to a pool
// from other goroutines.
func AssertEventually(t testing.TB, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(time.Millisecond)
	}
}

// Resource is a pooled test object that remembers whether it was closed.
type Resource struct {
	ID     int
	closed atomic.Int32
}

// Close marks the resource closed.
func (r *Resource) Close() error {
	r.closed.Add(1)
	return nil
}

// Closed reports how many times Close was called.
func (r *Resource) Closed() int {
	return int(r.closed.Load())
}

// ResourceGenerator builds numbered Resources and records every one it
// built. The zero value is ready to use.
type ResourceGenerator struct {
	mu      sync.Mutex
	built   []*Resource
	failErr error
}

// Generate satisfies pool.Generator[*Resource].
func (g *ResourceGenerator) Generate() (*Resource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failErr != nil {
		err := g.failErr
		g.failErr = nil
		return nil, err
	}
	r := &Resource{ID: len(g.built) + 1}
	g.built = append(g.built, r)
	return r, nil
}

// FailNext makes the next Generate call return err.
func (g *ResourceGenerator) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failErr = err
}

// Built returns every resource generated so far.
func (g *ResourceGenerator) Built() []*Resource {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Resource(nil), g.built...)
}
