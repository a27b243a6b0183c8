package pool

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(e string) {
	tr.mu.Lock()
	tr.events = append(tr.events, e)
	tr.mu.Unlock()
}

func (tr *trace) all() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

type facade struct {
	inner    *resource
	tr       *trace
	closeErr error
	onClose  func()
}

func (f *facade) Close() error {
	f.tr.add("shim closed")
	if f.onClose != nil {
		f.onClose()
	}
	return f.closeErr
}

func newFacadePool(t *testing.T, tr *trace, opts ...Option) *ShimmedPool[*resource, *facade] {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	sp, err := NewShimmed(
		func() (*resource, error) { return &resource{}, nil },
		func(r *resource) (*facade, error) {
			tr.add("shim created")
			return &facade{inner: r, tr: tr}, nil
		},
		opts...,
	)
	require.NoError(t, err)
	return sp
}

func TestShimmedRejectsInvalidArguments(t *testing.T) {
	_, err := NewShimmed[*resource, *facade](func() (*resource, error) { return &resource{}, nil }, nil)
	assert.True(t, IsInvalidArgument(err))

	_, err = NewShimmed[*resource](nil, func(*resource) (*facade, error) { return &facade{}, nil })
	assert.True(t, IsInvalidArgument(err))

	_, err = Shim[*resource, *facade](nil, func(*resource) (*facade, error) { return &facade{}, nil })
	assert.True(t, IsInvalidArgument(err))

	inner, _ := newResourcePool(t)
	_, err = Shim[*resource, *facade](inner, nil)
	assert.True(t, IsInvalidArgument(err))

	sp := newFacadePool(t, &trace{})
	assert.True(t, IsInvalidArgument(sp.Use(nil)))

	_, err = UseShimmedValue[*resource, *facade, int](sp, nil)
	assert.True(t, IsInvalidArgument(err))
	_, err = UseShimmedValue[*resource, *facade, int](nil, func(*facade) (int, error) { return 0, nil })
	assert.True(t, IsInvalidArgument(err))
}

func TestShimLifecycleOrdering(t *testing.T) {
	tr := &trace{}
	sp := newFacadePool(t, tr)

	var checkedOutAtClose int64
	sp2, err := Shim(sp.Pool(), func(r *resource) (*facade, error) {
		tr.add("shim created")
		return &facade{inner: r, tr: tr, onClose: func() {
			checkedOutAtClose = sp.Stats().InUse
		}}, nil
	})
	require.NoError(t, err)

	require.NoError(t, sp2.Use(func(f *facade) error {
		require.NotNil(t, f.inner)
		tr.add("work")
		return nil
	}))
	tr.add("returned")

	assert.Equal(t, []string{"shim created", "work", "shim closed", "returned"}, tr.all())
	assert.Equal(t, int64(1), checkedOutAtClose, "shim must be closed before the object is returned")
	assert.Equal(t, int64(1), sp.Stats().Free)
}

func TestShimCreatedFreshPerCall(t *testing.T) {
	tr := &trace{}
	sp := newFacadePool(t, tr)

	var shims []*facade
	for i := 0; i < 3; i++ {
		require.NoError(t, sp.Use(func(f *facade) error {
			shims = append(shims, f)
			return nil
		}))
	}

	assert.Equal(t, 1, sp.Count())
	assert.NotSame(t, shims[0], shims[1])
	assert.NotSame(t, shims[1], shims[2])
	assert.Same(t, shims[0].inner, shims[2].inner)
}

func TestShimGeneratorFailureSkipsWork(t *testing.T) {
	errShim := stderrors.New("shim failed")
	sp, err := NewShimmed(
		func() (*resource, error) { return &resource{}, nil },
		func(*resource) (*facade, error) { return nil, errShim },
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	err = sp.Use(func(*facade) error {
		t.Error("work must not run when the shim generator fails")
		return nil
	})
	assert.Same(t, errShim, err)

	stats := sp.Stats()
	assert.Equal(t, int64(1), stats.Free)
	assert.Equal(t, int64(0), stats.InUse)
}

func TestShimCloseErrorAppendedAfterWorkError(t *testing.T) {
	errWork := stderrors.New("work failed")
	errClose := stderrors.New("close failed")
	tr := &trace{}
	sp, err := NewShimmed(
		func() (*resource, error) { return &resource{}, nil },
		func(r *resource) (*facade, error) { return &facade{inner: r, tr: tr, closeErr: errClose}, nil },
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	err = sp.Use(func(*facade) error { return errWork })
	assert.ErrorIs(t, err, errWork)
	assert.ErrorIs(t, err, errClose)

	err = sp.Use(func(*facade) error { return nil })
	assert.Same(t, errClose, err)
}

func TestShimWorkPanicClosesShimAndReturnsObject(t *testing.T) {
	tr := &trace{}
	sp := newFacadePool(t, tr)

	assert.PanicsWithValue(t, "work exploded", func() {
		_ = sp.Use(func(*facade) error { panic("work exploded") })
	})

	assert.Equal(t, []string{"shim created", "shim closed"}, tr.all())
	assert.Equal(t, int64(1), sp.Stats().Free)
	assert.Equal(t, int64(0), sp.Stats().InUse)
}

func TestShimLimitErrorBubblesUnchanged(t *testing.T) {
	tr := &trace{}
	sp := newFacadePool(t, tr, WithLimit(1))

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- sp.Use(func(*facade) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := sp.Use(func(*facade) error {
		t.Error("work must not run when the limit is reached")
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsLimitReached(err))
	src, ok := LimitReachedPool(err)
	require.True(t, ok)
	assert.Same(t, sp, src)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sp.Count())
	assert.Equal(t, 1, sp.Limit())
}

func TestShimmedReRaisesCreatedEvent(t *testing.T) {
	var got atomic.Value
	sp := newFacadePool(t, &trace{}, WithName("facades"), WithObserver(ObserverFunc(func(e CreatedEvent) {
		got.Store(e)
	})))

	require.NoError(t, sp.Use(func(*facade) error { return nil }))

	e, ok := got.Load().(CreatedEvent)
	require.True(t, ok)
	assert.Same(t, sp, e.Pool)
	assert.Equal(t, "facades", e.Name)
	assert.Equal(t, "facades", sp.Name())
	assert.Equal(t, 1, e.Count)

	// Decorating an existing pool keeps the inner pool as event source.
	inner, _ := newResourcePool(t)
	var source atomic.Value
	inner.AddObserver(ObserverFunc(func(e CreatedEvent) { source.Store(e.Pool) }))
	decorated, err := Shim(inner, func(r *resource) (*facade, error) { return &facade{inner: r, tr: &trace{}}, nil })
	require.NoError(t, err)
	require.NoError(t, decorated.Use(func(*facade) error { return nil }))
	assert.Same(t, inner, source.Load())
}

func TestShimmedAddObserver(t *testing.T) {
	sp := newFacadePool(t, &trace{})
	var calls atomic.Int32
	sp.AddObserver(ObserverFunc(func(CreatedEvent) { calls.Add(1) }))

	require.NoError(t, sp.Use(func(*facade) error { return nil }))
	assert.Equal(t, int32(1), calls.Load())
}

func TestUseShimmedValue(t *testing.T) {
	sp := newFacadePool(t, &trace{})

	v, err := UseShimmedValue(sp, func(f *facade) (bool, error) { return f.inner != nil, nil })
	require.NoError(t, err)
	assert.True(t, v)

	errWork := stderrors.New("work failed")
	v, err = UseShimmedValue(sp, func(*facade) (bool, error) { return true, errWork })
	assert.ErrorIs(t, err, errWork)
	assert.False(t, v)
}

func TestShimmedDispose(t *testing.T) {
	sp := newFacadePool(t, &trace{})
	var obj *resource
	require.NoError(t, sp.Use(func(f *facade) error {
		obj = f.inner
		return nil
	}))

	require.NoError(t, sp.Dispose())
	assert.True(t, sp.Disposed())
	assert.Equal(t, int32(1), obj.closed.Load())
	assert.True(t, IsClosed(sp.Use(func(*facade) error { return nil })))
}
