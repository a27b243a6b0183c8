// Package config provides the configuration system for the objectpool binary.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Default(): built-in values
//  2. an optional YAML file passed to Load, with ${VAR_NAME} substitution
//  3. environment variables prefixed with OBJECTPOOL_, where nested keys are
//     joined with "_" (OBJECTPOOL_POOL_LIMIT overrides pool.limit)
//
// The configuration is organized into sections:
//   - Log: level and encoding of the global zap logger
//   - Pool: name and object limit of command-built pools
//   - Bench: iterations, concurrency and report format of the benchmark
//   - HTTP: transport, timeout and per-destination limit of pooled clients
//   - Metrics: Prometheus endpoint
//   - Tracing: OpenTelemetry span export
//
// Example usage:
//
//	cfg, err := config.Load("objectpool.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := pool.New(newParser, cfg.Pool.Options()...)
package config
