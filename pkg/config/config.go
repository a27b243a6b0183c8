package config

import (
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/objectpool/pkg/clients"
	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// Config is the root configuration of the objectpool binary.
type Config struct {
	// Log configures the global zap logger
	Log logger.Config `mapstructure:"log" yaml:"log"`
	// Pool configures the object pools built by commands
	Pool PoolConfig `mapstructure:"pool" yaml:"pool"`
	// Bench configures the parallel benchmark
	Bench BenchConfig `mapstructure:"bench" yaml:"bench"`
	// HTTP configures the pooled HTTP clients
	HTTP clients.HTTPConfig `mapstructure:"http" yaml:"http"`
	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	// Tracing configures OpenTelemetry tracing
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// PoolConfig contains object pool settings.
type PoolConfig struct {
	// Name identifies the pool in logs and metrics
	Name string `mapstructure:"name" yaml:"name"`
	// Limit caps the objects a pool constructs, 0 means unbounded
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// BenchConfig contains parallel benchmark settings.
type BenchConfig struct {
	// Iterations is the total number of Use calls
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	// Concurrency is the number of worker goroutines, 0 means GOMAXPROCS
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// Format selects the report format (text, json)
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Address   string `mapstructure:"address" yaml:"address"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	// Pretty prints spans as indented JSON
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`
	// ExportTimeout bounds flushing spans on shutdown
	ExportTimeout time.Duration `mapstructure:"export_timeout" yaml:"export_timeout"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Log: logger.Config{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stderr"},
		},
		Pool: PoolConfig{
			Name:  "objectpool",
			Limit: 0,
		},
		Bench: BenchConfig{
			Iterations:  1_000_000,
			Concurrency: 0,
			Format:      "text",
		},
		HTTP: *clients.DefaultHTTPConfig(),
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   ":9090",
			Namespace: "objectpool",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			ServiceName:   "objectpool",
			SampleRate:    1.0,
			ExportTimeout: 5 * time.Second,
		},
	}
}

// Validate checks the configuration for values the binary cannot run with.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "log.level is invalid")
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("log.encoding must be json or console, got %q", c.Log.Encoding))
	}
	if c.Pool.Limit < 0 {
		return errors.New(errors.ErrorTypeConfig, "pool.limit cannot be negative")
	}
	if c.Bench.Iterations <= 0 {
		return errors.New(errors.ErrorTypeConfig, "bench.iterations must be positive")
	}
	if c.Bench.Concurrency < 0 {
		return errors.New(errors.ErrorTypeConfig, "bench.concurrency cannot be negative")
	}
	switch c.Bench.Format {
	case "text", "json":
	default:
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("bench.format must be text or json, got %q", c.Bench.Format))
	}
	if c.HTTP.PoolLimit < 0 {
		return errors.New(errors.ErrorTypeConfig, "http.pool_limit cannot be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New(errors.ErrorTypeConfig, "http.rate_limit cannot be negative")
	}
	if c.HTTP.MaxRetries < 0 {
		return errors.New(errors.ErrorTypeConfig, "http.max_retries cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics.address is required when metrics are enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sample_rate must be between 0 and 1")
	}
	return nil
}

// Options converts the pool settings into pool options.
func (p PoolConfig) Options() []pool.Option {
	limit := p.Limit
	if limit <= 0 {
		limit = pool.Unbounded
	}

	opts := []pool.Option{pool.WithLimit(limit)}
	if p.Name != "" {
		opts = append(opts, pool.WithName(p.Name))
	}
	return opts
}

// Workers returns the benchmark concurrency, defaulting to GOMAXPROCS.
func (b BenchConfig) Workers() int {
	if b.Concurrency <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return b.Concurrency
}
