package registry

import (
	stderrors "errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/objectpool/pkg/errors"
)

type disposable struct {
	key      string
	disposed atomic.Int32
	err      error
}

func (d *disposable) Dispose() error {
	d.disposed.Add(1)
	return d.err
}

func newTestRegistry(t *testing.T) *Registry[string, *disposable] {
	return New[string, *disposable]("test").WithLogger(zaptest.NewLogger(t))
}

func TestGetOrCreateRunsFactoryOncePerKey(t *testing.T) {
	r := newTestRegistry(t)

	var calls atomic.Int32
	factory := func(key string) (*disposable, error) {
		calls.Add(1)
		return &disposable{key: key}, nil
	}

	var wg sync.WaitGroup
	results := make([]*disposable, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := r.GetOrCreate("a", factory)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreateFactoryFailureLeavesNoEntry(t *testing.T) {
	r := newTestRegistry(t)
	errFactory := stderrors.New("factory failed")

	_, err := r.GetOrCreate("a", func(string) (*disposable, error) { return nil, errFactory })
	assert.Same(t, errFactory, err)
	_, ok := r.Get("a")
	assert.False(t, ok)

	v, err := r.GetOrCreate("a", func(key string) (*disposable, error) { return &disposable{key: key}, nil })
	require.NoError(t, err)
	assert.Equal(t, "a", v.key)

	_, err = r.GetOrCreate("b", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestKeysAndRange(t *testing.T) {
	r := newTestRegistry(t)
	for _, k := range []string{"c", "a", "b"} {
		_, err := r.GetOrCreate(k, func(key string) (*disposable, error) { return &disposable{key: key}, nil })
		require.NoError(t, err)
	}

	keys := r.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	visited := 0
	r.Range(func(k string, v *disposable) bool {
		assert.Equal(t, k, v.key)
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestCloseDisposesEntries(t *testing.T) {
	r := newTestRegistry(t)
	errDispose := stderrors.New("dispose failed")

	a, _ := r.GetOrCreate("a", func(key string) (*disposable, error) { return &disposable{key: key}, nil })
	b, _ := r.GetOrCreate("b", func(key string) (*disposable, error) { return &disposable{key: key, err: errDispose}, nil })

	err := r.Close()
	assert.ErrorIs(t, err, errDispose)
	assert.Equal(t, int32(1), a.disposed.Load())
	assert.Equal(t, int32(1), b.disposed.Load())
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), a.disposed.Load())

	_, err = r.GetOrCreate("a", func(key string) (*disposable, error) { return &disposable{key: key}, nil })
	assert.True(t, errors.IsType(err, errors.ErrorTypeClosed))
}

func TestCloseSkipsNonDisposers(t *testing.T) {
	r := New[int, string]("plain").WithLogger(zaptest.NewLogger(t))
	_, err := r.GetOrCreate(1, func(int) (string, error) { return "one", nil })
	require.NoError(t, err)

	assert.NoError(t, r.Close())
}
