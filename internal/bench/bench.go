// Package bench drives an object pool under parallel demand and reports how
// many objects the pool needed to serve it.
package bench

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/objectpool/pkg/config"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/observability"
	"github.com/ajitpratap0/objectpool/pkg/pool"
)

const (
	// checkEvery is how many iterations a worker runs between context checks.
	checkEvery = 1024

	limitRetryInitial = 10 * time.Microsecond
	limitRetryMax     = time.Millisecond
)

// Runner runs the parallel list benchmark.
type Runner struct {
	cfg       config.BenchConfig
	poolOpts  []pool.Option
	logger    *zap.Logger
	collector *metrics.PoolCollector
	monitor   *ResourceMonitor
}

// Option configures a Runner.
type Option func(*Runner)

// WithPoolOptions passes options to the benchmarked pool.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(r *Runner) {
		r.poolOpts = append(r.poolOpts, opts...)
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithCollector registers the benchmarked pool with c for the duration of
// the run.
func WithCollector(c *metrics.PoolCollector) Option {
	return func(r *Runner) {
		r.collector = c
	}
}

// NewRunner creates a benchmark runner.
func NewRunner(cfg config.BenchConfig, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.poolOpts = append(r.poolOpts, pool.WithLogger(r.logger))
	r.monitor = NewResourceMonitor()
	return r
}

// Run appends each iteration index to a pooled list from Workers goroutines
// and reports the number of lists the pool constructed. Checkouts refused by
// the pool limit are retried.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	workers := r.cfg.Workers()
	iterations := r.cfg.Iterations

	ctx, span := observability.Tracer().Start(ctx, "bench.run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.Int("bench.iterations", iterations),
		attribute.Int("bench.workers", workers),
	)

	p, err := pool.New(func() (*[]int, error) {
		list := make([]int, 0)
		return &list, nil
	}, r.poolOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if derr := p.Dispose(); derr != nil {
			r.logger.Error("failed to dispose benchmark pool", zap.Error(derr))
		}
	}()

	if r.collector != nil {
		r.collector.Add(p)
		defer r.collector.Remove(p.Name())
	}

	r.logger.Info("benchmark started",
		zap.String("pool", p.Name()),
		zap.Int("iterations", iterations),
		zap.Int("workers", workers))

	var next atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := next.Add(1) - 1
				if i >= int64(iterations) {
					return nil
				}
				if i%checkEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if err := r.use(gctx, p, int(i)); err != nil {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	report = &Report{
		Pool:       p.Name(),
		Iterations: iterations,
		Workers:    workers,
		Count:      p.Count(),
		Duration:   elapsed,
		Stats:      p.Stats(),
	}
	if elapsed > 0 {
		report.UsesPerSecond = float64(report.Stats.Uses) / elapsed.Seconds()
	}
	if usage, uerr := r.monitor.Usage(); uerr == nil {
		report.Resources = usage
	} else {
		r.logger.Warn("failed to read process resource usage", zap.Error(uerr))
	}

	span.SetAttributes(attribute.Int("pool.count", report.Count))
	r.logger.Info("benchmark finished",
		zap.Int("pool_count", report.Count),
		zap.Duration("duration", elapsed),
		zap.Float64("uses_per_second", report.UsesPerSecond))

	return report, nil
}

// use appends i to a pooled list. A checkout refused by the pool limit is
// retried after a short exponential backoff until ctx is done.
func (r *Runner) use(ctx context.Context, p *pool.Pool[*[]int], i int) error {
	var wait *backoff.ExponentialBackOff
	for {
		err := p.Use(func(list *[]int) error {
			*list = append(*list, i)
			return nil
		})
		if !pool.IsLimitReached(err) {
			return err
		}

		if wait == nil {
			wait = backoff.NewExponentialBackOff()
			wait.InitialInterval = limitRetryInitial
			wait.MaxInterval = limitRetryMax
			wait.Reset()
		}
		timer := time.NewTimer(wait.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
