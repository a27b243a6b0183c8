package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/pool"
	"github.com/ajitpratap0/objectpool/pkg/registry"
)

// HTTPClientPool keeps one object pool of clients per destination. A
// destination is a base address plus a request timeout; pools are created
// lazily on first use and live until Close.
type HTTPClientPool struct {
	config   *HTTPConfig
	logger   *zap.Logger
	pools    *registry.Registry[string, *pool.Pool[*Client]]
	poolOpts []pool.Option
}

// Message is a response whose body has been read into Content and closed.
type Message struct {
	StatusCode int
	Header     http.Header
	Response   *http.Response
	Content    string
}

// NewHTTPClientPool creates an empty client pool. opts are applied to every
// per-destination pool after the defaults derived from config.
func NewHTTPClientPool(config *HTTPConfig, log *zap.Logger, opts ...pool.Option) *HTTPClientPool {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	return &HTTPClientPool{
		config:   config,
		logger:   log.With(zap.String("component", "http_client_pool")),
		pools:    registry.New[string, *pool.Pool[*Client]]("http_clients").WithLogger(log),
		poolOpts: opts,
	}
}

// Key returns the destination key: the timeout in seconds and the lower-cased
// base address, separated by "|".
func Key(baseURL *url.URL, timeout time.Duration) string {
	return strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64) + "|" + strings.ToLower(baseURL.String())
}

// Key returns the key of the pool serving baseURL with timeout. A
// non-positive timeout maps to the configured request timeout, so it shares
// a pool with requests that name that timeout explicitly.
func (hp *HTTPClientPool) Key(baseURL *url.URL, timeout time.Duration) string {
	return Key(baseURL, hp.config.EffectiveTimeout(timeout))
}

// Pool returns the pool for a destination, creating it on first use.
func (hp *HTTPClientPool) Pool(baseURL *url.URL, timeout time.Duration) (*pool.Pool[*Client], error) {
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}

	timeout = hp.config.EffectiveTimeout(timeout)
	base := *baseURL
	key := Key(&base, timeout)
	return hp.pools.GetOrCreate(key, func(key string) (*pool.Pool[*Client], error) {
		limit := hp.config.PoolLimit
		if limit <= 0 {
			limit = pool.Unbounded
		}

		opts := []pool.Option{
			pool.WithName("http:" + key),
			pool.WithLimit(limit),
			pool.WithLogger(hp.logger),
		}
		opts = append(opts, hp.poolOpts...)

		p, err := pool.New(func() (*Client, error) {
			return NewClient(&base, timeout, hp.config, hp.logger)
		}, opts...)
		if err != nil {
			return nil, err
		}

		hp.logger.Info("created client pool for destination", zap.String("key", key))
		return p, nil
	})
}

// Use runs work with a pooled client for the destination.
func (hp *HTTPClientPool) Use(baseURL *url.URL, timeout time.Duration, work func(*Client) error) error {
	if work == nil {
		return errors.New(errors.ErrorTypeValidation, "work must not be nil").WithDetail("argument", "work")
	}

	p, err := hp.Pool(baseURL, timeout)
	if err != nil {
		return err
	}
	return p.Use(work)
}

// GetMessageAndContent runs work with a pooled client and reads the body of
// the response it returns. The body is always closed.
func (hp *HTTPClientPool) GetMessageAndContent(baseURL *url.URL, timeout time.Duration, work func(*Client) (*http.Response, error)) (*Message, error) {
	if work == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "work must not be nil").WithDetail("argument", "work")
	}

	p, err := hp.Pool(baseURL, timeout)
	if err != nil {
		return nil, err
	}

	return pool.UseValue(p, func(c *Client) (*Message, error) {
		resp, err := work(c)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, errors.New(errors.ErrorTypeInternal, "work returned no response")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body")
		}

		return &Message{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Response:   resp,
			Content:    string(body),
		}, nil
	})
}

// GetMessageAndContentRetry is GetMessageAndContent retried with exponential
// backoff while the failure is retryable (connection, timeout or pool limit),
// up to MaxRetries extra attempts. Each attempt checks out a client again.
func (hp *HTTPClientPool) GetMessageAndContentRetry(ctx context.Context, baseURL *url.URL, timeout time.Duration, work func(*Client) (*http.Response, error)) (*Message, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	if hp.config.RetryInterval > 0 {
		backoffCfg.InitialInterval = hp.config.RetryInterval
	}

	for attempt := 0; ; attempt++ {
		msg, err := hp.GetMessageAndContent(baseURL, timeout, work)
		if err == nil || attempt >= hp.config.MaxRetries || !errors.IsRetryable(err) {
			return msg, err
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			return nil, err
		}
		hp.logger.Warn("retrying request",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", sleep),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// Keys returns the destination keys of every pool created so far.
func (hp *HTTPClientPool) Keys() []string {
	return hp.pools.Keys()
}

// Stats returns per-destination pool statistics.
func (hp *HTTPClientPool) Stats() map[string]pool.Stats {
	stats := make(map[string]pool.Stats, hp.pools.Len())
	hp.pools.Range(func(key string, p *pool.Pool[*Client]) bool {
		stats[key] = p.Stats()
		return true
	})
	return stats
}

// Close disposes every destination pool, closing all clients.
func (hp *HTTPClientPool) Close() error {
	if err := hp.pools.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to close http client pools")
	}
	return nil
}

var (
	defaultPool     *HTTPClientPool
	defaultPoolOnce sync.Once
)

// Default returns the process-wide client pool, creating it on first call.
func Default() *HTTPClientPool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewHTTPClientPool(DefaultHTTPConfig(), logger.Get())
	})
	return defaultPool
}

// Use runs work with a client from the process-wide pool.
func Use(baseURL *url.URL, timeout time.Duration, work func(*Client) error) error {
	return Default().Use(baseURL, timeout, work)
}

// GetMessageAndContent runs work with a client from the process-wide pool and
// reads the response body.
func GetMessageAndContent(baseURL *url.URL, timeout time.Duration, work func(*Client) (*http.Response, error)) (*Message, error) {
	return Default().GetMessageAndContent(baseURL, timeout, work)
}

// String implements fmt.Stringer for log output.
func (m *Message) String() string {
	return fmt.Sprintf("%d (%d bytes)", m.StatusCode, len(m.Content))
}
