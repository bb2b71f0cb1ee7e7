// Package base provides the HTTP transport shared by the Confluence and Jira clients.
package base

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
	"github.com/olgasafonova/atlassian-mcp-server/internal/infra"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
	"github.com/olgasafonova/atlassian-mcp-server/tracing"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultBackoff is the first retry delay; it doubles per attempt
	DefaultBackoff = 100 * time.Millisecond

	// MaxConcurrentRequests limits parallel API calls per backend
	MaxConcurrentRequests = 5

	// maxErrorBody bounds how much of an error response is kept
	maxErrorBody = 500
)

// Client is an authenticated REST client for one Atlassian product with
// retries, circuit breaking, GET coalescing, and an optional catalog cache.
type Client struct {
	Name       string
	BaseURL    string
	token      string
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration

	HTTPClient     *http.Client
	Logger         *slog.Logger
	Cache          *infra.Cache
	Dedup          *infra.RequestDeduplicator
	CircuitBreaker *infra.CircuitBreaker
	Semaphore      chan struct{}
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithCache sets a custom cache
func WithCache(c *infra.Cache) ClientOption {
	return func(client *Client) {
		client.Cache = c
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.UserAgent = ua
		}
	}
}

// WithRetry sets the retry budget and the first backoff delay
func WithRetry(maxRetries int, backoff time.Duration) ClientOption {
	return func(client *Client) {
		if maxRetries >= 0 {
			client.MaxRetries = maxRetries
		}
		if backoff > 0 {
			client.Backoff = backoff
		}
	}
}

// WithTransport builds the HTTP client from a timeout and TLS setting
func WithTransport(timeout time.Duration, insecureSkipVerify bool) ClientOption {
	return func(client *Client) {
		client.HTTPClient = newHTTPClient(timeout, insecureSkipVerify)
	}
}

// NewClient creates a client for the named backend at baseURL, authenticated
// with a bearer token.
func NewClient(name, baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		Name:           name,
		BaseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		UserAgent:      "atlassian-mcp-server/1.0",
		MaxRetries:     3,
		Backoff:        DefaultBackoff,
		HTTPClient:     newHTTPClient(DefaultTimeout, false),
		Logger:         slog.Default(),
		Cache:          infra.NewCache(infra.DefaultMaxCacheEntries, infra.DefaultCacheTTL),
		Dedup:          infra.NewRequestDeduplicator(),
		CircuitBreaker: infra.NewCircuitBreaker(name, infra.CircuitBreakerConfig{}),
		Semaphore:      make(chan struct{}, MaxConcurrentRequests),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases resources held by the client
func (c *Client) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
}

// CircuitBreakerStats returns the current circuit breaker state
func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	default:
	}

	metrics.RateLimitWaits.WithLabelValues(c.Name).Inc()
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// Request describes one REST call relative to BaseURL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Action labels metrics and logs (e.g. "get_issue").
	Action string

	// Cacheable GETs are served from the catalog cache when present.
	Cacheable bool
}

// Get performs a GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, action, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Action: action})
}

// GetCached is Get backed by the catalog cache.
func (c *Client) GetCached(ctx context.Context, action, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Action: action, Cacheable: true})
}

// Post sends body as JSON and returns the raw response body.
func (c *Client) Post(ctx context.Context, action, path string, query url.Values, body any) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body, Action: action})
}

// Do executes req. GETs are coalesced, retried, and optionally cached;
// writes are attempted once. Non-2xx responses become *errors.UpstreamError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	fullURL := c.BaseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	if req.Method != http.MethodGet {
		return c.execute(ctx, req, fullURL)
	}

	if req.Cacheable && c.Cache != nil {
		if body, ok := c.Cache.Get(fullURL); ok {
			metrics.RecordCacheAccess(true)
			return body, nil
		}
		metrics.RecordCacheAccess(false)
	}

	body, shared, err := c.Dedup.Do(ctx, fullURL, func() ([]byte, error) {
		return c.execute(ctx, req, fullURL)
	})
	if shared {
		metrics.DedupShared.WithLabelValues(c.Name).Inc()
	}
	if err != nil {
		return nil, err
	}

	if req.Cacheable && c.Cache != nil {
		c.Cache.Set(fullURL, body)
		metrics.SetCacheSize(c.Name, c.Cache.Size())
	}
	return body, nil
}

func (c *Client) execute(ctx context.Context, req Request, fullURL string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "atlassian."+c.Name+"."+req.Action)
	defer span.End()
	tracing.AddBackendAttributes(span, c.Name, req.Method, req.Path)

	if err := c.CircuitBreaker.Check(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if err := c.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	defer c.ReleaseSlot()

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	retries := uint64(c.MaxRetries)
	if req.Method != http.MethodGet {
		retries = 0
	}
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(c.Backoff))

	start := time.Now()
	attempt := 0
	var body []byte
	var status int

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.BackendAPIRetries.WithLabelValues(c.Name, req.Action).Inc()
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", c.UserAgent)
		if c.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(httpReq)
		if err != nil {
			c.Logger.Warn("Atlassian request failed",
				"backend", c.Name,
				"action", req.Action,
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}

		body, err = readAndClose(resp)
		status = resp.StatusCode
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
		}

		switch {
		case status == http.StatusTooManyRequests:
			if wait := retryAfter(resp.Header.Get("Retry-After")); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return retry.RetryableError(c.upstreamError(status, body))
		case status >= 500:
			return retry.RetryableError(c.upstreamError(status, body))
		case status >= 400:
			return c.upstreamError(status, body)
		}
		return nil
	})

	duration := time.Since(start).Seconds()
	if err != nil {
		code := ""
		if status != 0 {
			code = strconv.Itoa(status)
		}
		metrics.RecordAPICall(c.Name, req.Action, duration, false, code)
		if status == 0 || status >= 500 || status == http.StatusTooManyRequests {
			c.CircuitBreaker.RecordFailure()
		}
		tracing.RecordError(span, err)
		return nil, err
	}

	c.CircuitBreaker.RecordSuccess()
	metrics.RecordAPICall(c.Name, req.Action, duration, true, "")
	return body, nil
}

func (c *Client) upstreamError(status int, body []byte) error {
	return &apperrors.UpstreamError{
		Backend:    c.Name,
		StatusCode: status,
		Body:       truncate(strings.TrimSpace(string(body)), maxErrorBody),
	}
}

// retryAfter parses a Retry-After header given in seconds
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with pooled transport settings
func newHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-hosted instances
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
