// Package clients provides pooled HTTP client implementations
package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/objectpool/pkg/errors"
)

// Client is an HTTP client bound to one base address and one request timeout.
// Clients are built by HTTPClientPool and handed to one caller at a time.
type Client struct {
	baseURL    *url.URL
	timeout    time.Duration
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport
	limiter    *rate.Limiter

	totalRequests  atomic.Int64
	failedRequests atomic.Int64
}

// HTTPConfig configures the clients built by HTTPClientPool
type HTTPConfig struct {
	// Connection settings
	MaxIdleConns        int           `json:"max_idle_conns" mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `json:"max_conns_per_host" mapstructure:"max_conns_per_host" yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout" mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	DisableKeepAlives   bool          `json:"disable_keep_alives" mapstructure:"disable_keep_alives" yaml:"disable_keep_alives"`
	DisableCompression  bool          `json:"disable_compression" mapstructure:"disable_compression" yaml:"disable_compression"`

	// HTTP/2 settings
	EnableHTTP2 bool `json:"enable_http2" mapstructure:"enable_http2" yaml:"enable_http2"`

	// Timeouts
	DialTimeout           time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" yaml:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `json:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout" yaml:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `json:"response_header_timeout" mapstructure:"response_header_timeout" yaml:"response_header_timeout"`
	RequestTimeout        time.Duration `json:"request_timeout" mapstructure:"request_timeout" yaml:"request_timeout"`
	KeepAlive             time.Duration `json:"keep_alive" mapstructure:"keep_alive" yaml:"keep_alive"`

	// TLS settings
	InsecureSkipVerify bool   `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	TLSMinVersion      uint16 `json:"tls_min_version" mapstructure:"tls_min_version" yaml:"tls_min_version"`

	// Rate limiting per client, 0 disables
	RateLimit float64 `json:"rate_limit" mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `json:"rate_burst" mapstructure:"rate_burst" yaml:"rate_burst"`

	// Retries of retryable failures in GetMessageAndContentRetry, 0 disables
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval" mapstructure:"retry_interval" yaml:"retry_interval"`

	// PoolLimit caps the clients built per destination, 0 means unbounded
	PoolLimit int `json:"pool_limit" mapstructure:"pool_limit" yaml:"pool_limit"`

	UserAgent string `json:"user_agent" mapstructure:"user_agent" yaml:"user_agent"`
}

// DefaultHTTPConfig returns the default client configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		EnableHTTP2:           true,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		RequestTimeout:        30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSMinVersion:         tls.VersionTLS12,
		RetryInterval:         100 * time.Millisecond,
		UserAgent:             "objectpool-httpclient/1.0",
	}
}

// EffectiveTimeout returns timeout, or RequestTimeout when timeout is not
// positive.
func (c *HTTPConfig) EffectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return c.RequestTimeout
	}
	return timeout
}

// NewClient creates a client for baseURL. A non-positive timeout falls back
// to config.RequestTimeout.
func NewClient(baseURL *url.URL, timeout time.Duration, config *HTTPConfig, logger *zap.Logger) (*Client, error) {
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout = config.EffectiveTimeout(timeout)

	base := *baseURL
	client := &Client{
		baseURL: &base,
		timeout: timeout,
		config:  config,
		logger:  logger.With(zap.String("component", "http_client"), zap.String("base_url", base.String())),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		DisableKeepAlives:     config.DisableKeepAlives,
		DisableCompression:    config.DisableCompression,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify, // #nosec G402 - opt-in via config
			MinVersion:         config.TLSMinVersion,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	client.httpClient = &http.Client{
		Transport: client.transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	client.logger.Debug("http client created", zap.Duration("timeout", timeout))
	return client, nil
}

func validateBaseURL(baseURL *url.URL) error {
	if baseURL == nil {
		return errors.New(errors.ErrorTypeValidation, "base URL must not be nil").
			WithDetail("argument", "base_url")
	}
	if !baseURL.IsAbs() || baseURL.Host == "" {
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("base URL %q must be absolute", baseURL.String())).
			WithDetail("argument", "base_url")
	}
	return nil
}

// BaseURL returns a copy of the client's base address
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Timeout returns the overall request timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Resolve resolves ref against the base address
func (c *Client) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, fmt.Sprintf("invalid request path %q", ref))
	}
	return c.baseURL.ResolveReference(u), nil
}

// Get performs an HTTP GET request for ref relative to the base address
func (c *Client) Get(ctx context.Context, ref string, headers map[string]string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, ref, nil, headers)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs an HTTP POST request for ref relative to the base address
func (c *Client) Post(ctx context.Context, ref string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, ref, body, headers)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// NewRequest builds a request for ref relative to the base address
func (c *Client) NewRequest(ctx context.Context, method, ref string, body io.Reader, headers map[string]string) (*http.Request, error) {
	u, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to build request")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	return req, nil
}

// Do performs an HTTP request, waiting on the rate limiter first if one is
// configured
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			c.failedRequests.Add(1)
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "rate limit wait aborted")
		}
	}

	c.totalRequests.Add(1)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failedRequests.Add(1)
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, fmt.Sprintf("%s %s failed", req.Method, req.URL.String()))
	}

	return resp, nil
}

// ClientStats represents per-client request statistics
type ClientStats struct {
	TotalRequests  int64 `json:"total_requests"`
	FailedRequests int64 `json:"failed_requests"`
}

// Stats returns the client's request counters
func (c *Client) Stats() ClientStats {
	return ClientStats{
		TotalRequests:  c.totalRequests.Load(),
		FailedRequests: c.failedRequests.Load(),
	}
}

// Close releases idle connections. The pool calls it on dispose.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	c.logger.Debug("http client closed")
	return nil
}
