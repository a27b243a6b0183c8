// Package metrics exposes object pool activity as Prometheus metrics.
//
// # Overview
//
// The package provides two pieces:
//   - PoolCollector: a prometheus.Collector that snapshots the statistics of
//     every registered pool at scrape time
//   - CreationObserver: a pool.Observer that counts object-created events as
//     they happen
//
// # Basic Usage
//
//	reg := metrics.NewRegistry()
//	collector := metrics.NewPoolCollector("objectpool")
//	reg.MustRegister(collector)
//
//	observer, _ := metrics.NewCreationObserver(reg, "objectpool")
//	p, _ := pool.New(newParser, pool.WithName("parsers"), pool.WithObserver(observer))
//	collector.Add(p)
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Metric Types
//
// Counter: created, reused, rejected, uses and failures totals
// Gauge: objects alive, free, in use and the configured limit
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// PoolStats is implemented by pool.Pool and pool.ShimmedPool.
type PoolStats interface {
	Name() string
	Count() int
	Limit() int
	Stats() pool.Stats
}

// PoolCollector reports statistics of registered pools on every scrape.
type PoolCollector struct {
	pools map[string]PoolStats
	mu    sync.RWMutex

	objects         *prometheus.Desc
	free            *prometheus.Desc
	inUse           *prometheus.Desc
	limit           *prometheus.Desc
	created         *prometheus.Desc
	reused          *prometheus.Desc
	limitRejections *prometheus.Desc
	uses            *prometheus.Desc
	failures        *prometheus.Desc
}

// NewPoolCollector creates a collector whose metric names are prefixed with
// namespace.
func NewPoolCollector(namespace string) *PoolCollector {
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}

	return &PoolCollector{
		pools:           make(map[string]PoolStats),
		objects:         desc("objects", "Number of objects constructed and alive"),
		free:            desc("objects_free", "Number of idle objects"),
		inUse:           desc("objects_in_use", "Number of checked-out objects"),
		limit:           desc("limit", "Maximum number of objects, absent when unbounded"),
		created:         desc("created_total", "Objects built by the generator"),
		reused:          desc("reused_total", "Checkouts served from the free set"),
		limitRejections: desc("limit_rejections_total", "Checkouts refused because the limit was reached"),
		uses:            desc("uses_total", "Work invocations"),
		failures:        desc("failures_total", "Work invocations that returned an error or panicked"),
	}
}

// Add registers p under its name, replacing any pool with the same name.
func (c *PoolCollector) Add(p PoolStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[p.Name()] = p
}

// Remove unregisters the pool with the given name.
func (c *PoolCollector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pools, name)
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.objects
	ch <- c.free
	ch <- c.inUse
	ch <- c.limit
	ch <- c.created
	ch <- c.reused
	ch <- c.limitRejections
	ch <- c.uses
	ch <- c.failures
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, p := range c.pools {
		s := p.Stats()
		ch <- prometheus.MustNewConstMetric(c.objects, prometheus.GaugeValue, float64(p.Count()), name)
		ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(s.Free), name)
		ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse), name)
		if limit := p.Limit(); limit != pool.Unbounded {
			ch <- prometheus.MustNewConstMetric(c.limit, prometheus.GaugeValue, float64(limit), name)
		}
		ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(s.Created), name)
		ch <- prometheus.MustNewConstMetric(c.reused, prometheus.CounterValue, float64(s.Reused), name)
		ch <- prometheus.MustNewConstMetric(c.limitRejections, prometheus.CounterValue, float64(s.LimitRejections), name)
		ch <- prometheus.MustNewConstMetric(c.uses, prometheus.CounterValue, float64(s.Uses), name)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures), name)
	}
}

// CreationObserver counts object-created events per pool.
type CreationObserver struct {
	created   *prometheus.CounterVec
	lastCount *prometheus.GaugeVec
}

// NewCreationObserver creates the observer and registers its metrics with
// reg. Registering twice with the same registry reuses the existing metrics.
func NewCreationObserver(reg prometheus.Registerer, namespace string) (*CreationObserver, error) {
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "object_created_events_total",
		Help:      "Object-created events delivered by pools",
	}, []string{"pool"})
	lastCount := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "object_created_last_count",
		Help:      "Pool object count reported by the latest object-created event",
	}, []string{"pool"})

	var err error
	if created, err = register(reg, created); err != nil {
		return nil, err
	}
	if lastCount, err = register(reg, lastCount); err != nil {
		return nil, err
	}

	return &CreationObserver{created: created, lastCount: lastCount}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObjectCreated implements pool.Observer.
func (o *CreationObserver) ObjectCreated(e pool.CreatedEvent) {
	o.created.WithLabelValues(e.Name).Inc()
	o.lastCount.WithLabelValues(e.Name).Set(float64(e.Count))
}

// NewRegistry creates a Prometheus registry with the Go runtime and process
// collectors plus any extra collectors.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}
