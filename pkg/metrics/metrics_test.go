package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

func TestPoolCollector(t *testing.T) {
	p, err := pool.New(func() (int, error) { return 1, nil },
		pool.WithName("ints"), pool.WithLimit(2), pool.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, p.Use(func(int) error { return nil }))
	require.NoError(t, p.Use(func(int) error { return nil }))

	c := NewPoolCollector("test")
	c.Add(p)

	expected := `
# HELP test_pool_created_total Objects built by the generator
# TYPE test_pool_created_total counter
test_pool_created_total{pool="ints"} 1
# HELP test_pool_limit Maximum number of objects, absent when unbounded
# TYPE test_pool_limit gauge
test_pool_limit{pool="ints"} 2
# HELP test_pool_objects Number of objects constructed and alive
# TYPE test_pool_objects gauge
test_pool_objects{pool="ints"} 1
# HELP test_pool_reused_total Checkouts served from the free set
# TYPE test_pool_reused_total counter
test_pool_reused_total{pool="ints"} 1
# HELP test_pool_uses_total Work invocations
# TYPE test_pool_uses_total counter
test_pool_uses_total{pool="ints"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"test_pool_created_total", "test_pool_limit", "test_pool_objects", "test_pool_reused_total", "test_pool_uses_total"))

	assert.Equal(t, 9, testutil.CollectAndCount(c))

	c.Remove("ints")
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestPoolCollectorOmitsUnboundedLimit(t *testing.T) {
	sp, err := pool.NewShimmed(
		func() (int, error) { return 1, nil },
		func(int) (*nopCloser, error) { return &nopCloser{}, nil },
		pool.WithName("shimmed"), pool.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	c := NewPoolCollector("test")
	c.Add(sp)
	assert.Equal(t, 0, testutil.CollectAndCount(c, "test_pool_limit"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "test_pool_objects"))
}

type nopCloser struct{}

func (*nopCloser) Close() error { return nil }

func TestCreationObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewCreationObserver(reg, "test")
	require.NoError(t, err)

	again, err := NewCreationObserver(reg, "test")
	require.NoError(t, err)

	p, err := pool.New(func() (int, error) { return 1, nil },
		pool.WithName("observed"), pool.WithObserver(obs), pool.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Use(func(int) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	require.NoError(t, p.Use(func(int) error { return nil }))
	close(release)
	<-done

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.created.WithLabelValues("observed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(again.created.WithLabelValues("observed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.lastCount.WithLabelValues("observed")))
}

func TestNewRegistry(t *testing.T) {
	c := NewPoolCollector("test")
	reg := NewRegistry(c)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
