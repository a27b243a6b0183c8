package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/internal/bench"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/observability"
	"github.com/ajitpratap0/objectpool/pkg/pool"
)

func (c *cli) benchCmd() *cobra.Command {
	var iterations, concurrency, limit int
	var format string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the parallel pool benchmark",
		Long: `Run Use on a pool of integer lists from many goroutines, appending the
iteration index each time, then report how many lists the pool needed.

Example:
  objectpool bench --iterations 1000000 --concurrency 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("iterations") {
				c.cfg.Bench.Iterations = iterations
			}
			if flags.Changed("concurrency") {
				c.cfg.Bench.Concurrency = concurrency
			}
			if flags.Changed("limit") {
				c.cfg.Pool.Limit = limit
			}
			if flags.Changed("format") {
				c.cfg.Bench.Format = format
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return c.runBench(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "Total number of Use calls")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker goroutines, 0 means GOMAXPROCS")
	cmd.Flags().IntVar(&limit, "limit", 0, "Object limit of the pool, 0 means unbounded")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Report format (text, json)")

	return cmd
}

func (c *cli) runBench(ctx context.Context) (err error) {
	log := logger.With(zap.String("command", "bench"))

	if c.cfg.Tracing.Enabled {
		if _, err := observability.InitTracing(ctx, c.cfg.Tracing, nil); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), c.cfg.Tracing.ExportTimeout)
			defer cancel()
			if serr := observability.Shutdown(sctx); serr != nil {
				log.Warn("failed to shutdown tracing", zap.Error(serr))
			}
		}()
	}

	meterObserver, err := observability.NewMeterObserver(nil)
	if err != nil {
		return err
	}
	poolOpts := append(c.cfg.Pool.Options(), pool.WithObserver(meterObserver))
	runnerOpts := []bench.Option{bench.WithLogger(log)}

	if c.cfg.Metrics.Enabled {
		collector := metrics.NewPoolCollector(c.cfg.Metrics.Namespace)
		reg := metrics.NewRegistry(collector)
		creations, err := metrics.NewCreationObserver(reg, c.cfg.Metrics.Namespace)
		if err != nil {
			return err
		}
		poolOpts = append(poolOpts, pool.WithObserver(creations))
		runnerOpts = append(runnerOpts, bench.WithCollector(collector))

		stop := serveMetrics(c.cfg.Metrics.Address, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)
		defer stop()
	}

	runnerOpts = append(runnerOpts, bench.WithPoolOptions(poolOpts...))
	report, err := bench.NewRunner(c.cfg.Bench, runnerOpts...).Run(ctx)
	if err != nil {
		return err
	}
	return report.Write(c.out, c.cfg.Bench.Format)
}

// serveMetrics exposes handler on addr until the returned stop is called.
func serveMetrics(addr string, handler http.Handler, log *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
