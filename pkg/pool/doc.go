// Package pool implements a generic, concurrency-safe object pool for
// reusable objects that are expensive to construct, such as HTTP clients,
// parsers or large buffers.
//
// # Architecture
//
// The package is built around two types:
//
//   - Pool[T]: the core. It owns a lock-free free set of idle objects, a
//     lock-free all set of every object it ever constructed, and a hard limit
//     on how many objects it will construct.
//   - ShimmedPool[T, S]: a decorator over Pool[T] that wraps each checked-out
//     object in a fresh, disposable shim for the duration of one call.
//
// Objects are never handed out directly. Callers pass a function to Use and
// the pool takes the object back when that function returns:
//
//	err := p.Use(func(c *Client) error {
//		return c.Ping()
//	})
//
// # Checkout Protocol
//
// A checkout first pops an idle object from the free set. Only when the free
// set is empty does the pool check the limit and call the generator, which
// runs outside of any lock. No caller ever waits for another caller to return
// an object: an empty free set at the limit fails immediately with a limit
// error (see IsLimitReached). Which idle object is handed out is unspecified.
//
// The object goes back to the free set exactly once per checkout, after the
// work function returns, returns an error or panics. Panics are re-raised
// once the object is back.
//
// # Shims
//
// A ShimmedPool builds a shim from the checked-out object on every call and
// closes it before the object is returned:
//
//	sp, _ := pool.NewShimmed(newConn, func(c *Conn) (*Session, error) {
//		return c.Begin()
//	})
//	err := sp.Use(func(s *Session) error {
//		return s.Exec("SELECT 1")
//	})
//
// # Events
//
// Observers registered with WithObserver or AddObserver are told about every
// newly constructed object. They run synchronously on the constructing
// goroutine and must not block. A panicking observer is logged and ignored.
//
// # Teardown
//
// Dispose releases every constructed object exactly once through Releaser or
// io.Closer, including objects still checked out. After Dispose, Use fails
// with an error matched by IsClosed.
//
// # Statistics
//
// Stats exposes counters for monitoring:
//   - Created: objects built by the generator
//   - Reused: checkouts served from the free set
//   - InUse: objects currently checked out
//   - Free: idle objects
//   - LimitRejections: checkouts refused by the limit
//   - Uses, Failures: work invocations and those that failed
package pool
