// Package objectpool provides generic, concurrency-safe object pools that
// grow lazily up to an optional limit and hand each object to exactly one
// caller at a time.
//
// # Architecture
//
// The module is organized around one core package and a set of supporting
// packages that put it to work:
//
//   - pkg/pool: Pool[T] and ShimmedPool[T, S], the scoped-use pools
//   - pkg/lockfree: the lock-free stack holding free and constructed objects
//   - pkg/registry: keyed, lazily created values such as per-destination pools
//   - pkg/clients: HTTP clients pooled per base address and timeout
//   - pkg/json: JSON encoding through pooled buffers
//   - pkg/metrics and pkg/observability: Prometheus and OpenTelemetry views
//     of pool activity
//
// # Quick Start
//
//	p, err := pool.New(func() (*Parser, error) {
//	    return NewParser(), nil
//	}, pool.WithName("parsers"), pool.WithLimit(8))
//	if err != nil {
//	    return err
//	}
//	defer p.Dispose()
//
//	err = p.Use(func(parser *Parser) error {
//	    return parser.Parse(input)
//	})
//
// Objects are never handed out twice at once. A call that needs a new object
// while the pool already holds Limit objects fails with a limit-reached error
// instead of waiting.
//
// # Shimmed Pools
//
// A ShimmedPool wraps every use of a pooled object in a short-lived
// io.Closer built for that call only, and closes it before the object goes
// back to the pool:
//
//	sp, _ := pool.NewShimmed(dial, func(c *Conn) (*Session, error) {
//	    return c.Begin()
//	})
//	err := sp.Use(func(s *Session) error {
//	    return s.Exec(query)
//	})
//
// # Command Line
//
// cmd/objectpool benchmarks a pool under parallel demand, fetches URLs
// through pooled HTTP clients and scaffolds configuration files:
//
//	objectpool bench --iterations 1000000
//	objectpool fetch https://example.com/
//	objectpool config init objectpool.yaml
package objectpool
