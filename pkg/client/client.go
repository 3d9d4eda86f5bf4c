// Package client provides the live HTTP fetcher used by the offline gateway,
// with DNS caching, transport error classification and connectivity tracking.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/connectivity"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/dnscache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for live fetches.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_fetch_requests_total",
		Help: "Total live fetches by method and status",
	}, []string{"method", "status"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offline_fetch_duration_seconds",
		Help:    "Live fetch duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_fetch_errors_total",
		Help: "Total live fetch failures by class",
	}, []string{"class"})
)

// Client performs live fetches over HTTP.
type Client struct {
	httpClient *http.Client
	tracker    *connectivity.Tracker
	config     Config
	logger     zerolog.Logger
}

// Verify interface implementation
var _ fetch.Fetcher = (*Client)(nil)

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent when the request carries none
	UserAgent string

	// Timeout bounds a single fetch including the body read
	Timeout time.Duration

	// MaxBodyBytes bounds the response body kept in memory
	MaxBodyBytes int64

	// Tracker receives the outcome of every fetch (optional)
	Tracker *connectivity.Tracker

	// Resolver caches DNS lookups (optional)
	Resolver *dnscache.Resolver
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:    userAgent,
		Timeout:      30 * time.Second,
		MaxBodyBytes: 10 << 20,
	}
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max_body_bytes must be > 0 (got %d)", cfg.MaxBodyBytes)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: NewTransport(cfg.Resolver),
		},
		tracker: cfg.Tracker,
		config:  cfg,
		logger:  log.With().Str("component", "fetch-client").Logger(),
	}, nil
}

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// RefreshResolver refreshes cached DNS entries every interval until ctx is done.
func RefreshResolver(ctx context.Context, resolver *dnscache.Resolver, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			resolver.Refresh(true)
		}
	}
}

// Fetch performs a live fetch. HTTP statuses are returned as responses;
// only transport failures are returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	startTime := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
	}()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if req.Destination != "" && httpReq.Header.Get("Sec-Fetch-Dest") == "" {
		httpReq.Header.Set("Sec-Fetch-Dest", req.Destination)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Executing live fetch")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(req, classifyError(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, c.fail(req, ErrorClassBody, fmt.Errorf("read response body: %w", err))
	}
	if int64(len(data)) > c.config.MaxBodyBytes {
		return nil, c.fail(req, ErrorClassBody, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.config.MaxBodyBytes))
	}

	if c.tracker != nil {
		c.tracker.RecordSuccess()
	}
	fetchRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("Live fetch completed")

	return &fetch.Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
		Source: fetch.SourceNetwork,
	}, nil
}

// fail records a transport failure and builds the returned error.
func (c *Client) fail(req *fetch.Request, class ErrorClass, err error) error {
	fetchErrorsTotal.WithLabelValues(string(class)).Inc()
	fetchRequestsTotal.WithLabelValues(req.Method, "error").Inc()

	if c.tracker != nil && countsAsOffline(class) {
		c.tracker.RecordFailure(err)
	}

	event := c.logger.Warn()
	if errors.Is(err, context.Canceled) {
		event = c.logger.Debug()
	}
	event.Err(err).
		Str("method", req.Method).
		Str("url", req.URL).
		Str("error_class", string(class)).
		Msg("Live fetch failed")

	return &FetchError{
		Method:     req.Method,
		URL:        req.URL,
		ErrorClass: class,
		Err:        err,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
