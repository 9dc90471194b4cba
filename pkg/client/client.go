// Package client provides the resilient upstream HTTP client: per-attempt
// timeouts, sequential retries with exponential backoff, error classification
// and optional client-side rate limiting.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/quran-xref/pkg/logging"
	"github.com/Sternrassler/quran-xref/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Client executes requests against a single upstream base URL.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	baseURL     string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration. Everything except BaseURL can be
// overridden per request.
type Config struct {
	// BaseURL is prepended to every request path (required).
	BaseURL string

	// Headers are sent with every request. Per-request headers win.
	Headers map[string]string

	// UserAgent is sent as User-Agent when set.
	UserAgent string

	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout time.Duration

	// Retry
	MaxRetries  int
	BackoffBase time.Duration

	// HTTPClient overrides the transport (default: a plain http.Client).
	HTTPClient *http.Client

	// RateLimiter, when set, is waited on before every attempt and fed from
	// response headers.
	RateLimiter *ratelimit.Tracker

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 500 * time.Millisecond,
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.BackoffBase < 0 {
		return nil, fmt.Errorf("backoff_base must be >= 0 (got %s)", cfg.BackoffBase)
	}

	logger := logging.NewLogger(logging.ComponentClient)
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: cfg.RateLimiter,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Request describes one logical request. Zero values fall back to the
// client configuration.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string

	// Body is encoded as JSON when non-nil.
	Body any

	Timeout     time.Duration
	Retries     *int
	BackoffBase time.Duration
}

// RequestOption adjusts a Request built by Get.
type RequestOption func(*Request)

// WithRetries overrides the number of retries, zero included.
func WithRetries(n int) RequestOption {
	return func(r *Request) { r.Retries = &n }
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

// WithBackoff overrides the backoff base.
func WithBackoff(d time.Duration) RequestOption {
	return func(r *Request) { r.BackoffBase = d }
}

// WithHeader sets a per-request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithQuery sets a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}
		r.Query.Set(key, value)
	}
}

// Response is a successful (2xx) upstream response with its body fully read.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty or null body leaves v untouched.
func (r *Response) Decode(v any) error {
	body := bytes.TrimSpace(r.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Get performs a GET request and decodes the JSON body into out (if non-nil).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) (*Response, error) {
	req := Request{Method: http.MethodGet, Path: path}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if out != nil {
		if err := resp.Decode(out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// Do performs req with retries. It returns *HTTPError for non-2xx responses
// and *TransportError when no response was obtained.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.buildURL(req.Path, req.Query)
	endpoint := req.Path

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = b
	}

	headers := c.mergeHeaders(req.Headers, body != nil)

	retryCfg := RetryConfig{
		MaxRetries:  c.config.MaxRetries,
		BackoffBase: c.config.BackoffBase,
	}
	if req.Retries != nil {
		retryCfg.MaxRetries = max(*req.Retries, 0)
	}
	if req.BackoffBase > 0 {
		retryCfg.BackoffBase = req.BackoffBase
	}

	timeout := c.config.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	logger := c.logger.With().
		Str("method", method).
		Str("endpoint", endpoint).
		Logger()

	var resp *Response
	err := retryWithBackoff(ctx, retryCfg, logger, func(attempt int) error {
		r, err := c.attempt(ctx, method, target, headers, body, timeout)
		if err != nil {
			c.recordFailure(logger, endpoint, attempt, err)
			return err
		}
		upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()
		resp = r
		return nil
	})
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.URL == "" {
			transportErr.Method = method
			transportErr.URL = target
		}
		return nil, err
	}

	return resp, nil
}

// attempt performs a single HTTP round trip under its own timeout.
func (c *Client) attempt(ctx context.Context, method, target string, headers http.Header, body []byte, timeout time.Duration) (*Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, URL: target, Cancelled: ctx.Err() != nil, Err: err}
		}
	}

	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header = headers.Clone()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, method, target, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError(ctx, method, target, fmt.Errorf("read body: %w", err))
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: httpResp.StatusCode,
			StatusText: httpResp.Status,
			Body:       parseBody(data),
			Class:      classifyStatus(httpResp.StatusCode),
			URL:        target,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// transportError distinguishes caller cancellation from attempt timeouts and
// network failures.
func (c *Client) transportError(ctx context.Context, method, target string, err error) *TransportError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TransportError{Method: method, URL: target, Cancelled: true, Err: ctxErr}
	}
	return &TransportError{Method: method, URL: target, Err: err}
}

func (c *Client) recordFailure(logger zerolog.Logger, endpoint string, attempt int, err error) {
	class := ClassOf(err)
	if class == "" {
		class = ErrorClassUnexpected
	}
	upstreamErrorsTotal.WithLabelValues(string(class)).Inc()

	status := string(class)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = strconv.Itoa(httpErr.StatusCode)
	}
	upstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()

	event := logger.Warn()
	if class == ErrorClassCancelled {
		event = logger.Debug()
	}
	event.Err(err).
		Int("attempt", attempt).
		Str("error_class", string(class)).
		Msg("Upstream request attempt failed")
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL
	if path != "" {
		target += "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (c *Client) mergeHeaders(perCall map[string]string, hasBody bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		h.Set("User-Agent", c.config.UserAgent)
	}
	for k, v := range c.config.Headers {
		h.Set(k, v)
	}
	for k, v := range perCall {
		h.Set(k, v)
	}
	return h
}

// parseBody returns the decoded JSON value, or the raw text when the body is
// not JSON.
func parseBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}
