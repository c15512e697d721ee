// Package robin is a Go SDK for the options-assistant analytical service.
package robin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"robin/internal/util"
)

const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Client talks to the analytical service over JSON/HTTP. Every attempt is
// bounded by a per-attempt timeout; endpoint methods retry failed attempts
// with a fixed delay.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	timeout           time.Duration
	maxRetries        int
	retryDelay        time.Duration
	retryClientErrors bool
	limiter           *util.RateLimiter
	log               *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. Its own Timeout should be
// zero or larger than the per-attempt timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the number of retries after the first attempt and the fixed
// delay between attempts.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithRetryClientErrors controls whether 4xx responses are retried. The
// default is true.
func WithRetryClientErrors(retry bool) Option {
	return func(c *Client) {
		c.retryClientErrors = retry
	}
}

// WithRateLimit throttles attempts to perMinute per minute. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		c.limiter = util.NewRateLimiter(perMinute)
	}
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for the service at baseURL. An empty baseURL
// falls back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{},
		timeout:           DefaultTimeout,
		maxRetries:        DefaultMaxRetries,
		retryDelay:        DefaultRetryDelay,
		retryClientErrors: true,
		log:               slog.Default().With("component", "robin"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// Request describes one call to the service. Body, when non-nil, is encoded
// as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Send performs exactly one attempt. It fails with ErrCancelled when ctx is
// cancelled, ErrTimeout when the per-attempt deadline or ctx's own deadline
// expires, and *NetworkError for non-2xx statuses and connection failures.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if ctx.Err() != nil {
		return nil, callerErr(ctx)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, callerErr(ctx)
		}
		return nil, &NetworkError{Err: fmt.Errorf("rate limit: %w", err)}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("robin: encode %s request: %w", req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("robin: build %s request: %w", req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newStatusError(resp.StatusCode, data)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// classify maps a transport failure onto the error taxonomy. The caller's
// context wins over the attempt deadline.
func (c *Client) classify(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return callerErr(parent)
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &NetworkError{Err: err}
}

// callerErr maps a done caller context: an expired deadline is a timeout,
// anything else is a cancellation.
func callerErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: caller deadline exceeded", ErrTimeout)
	}
	return ErrCancelled
}

// do runs req through the retry policy and decodes the reply into out.
func (c *Client) do(ctx context.Context, req Request, out any) error {
	var (
		resp    *Response
		attempt int
	)
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		attempt++
		r, err := c.Send(ctx, req)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return err
			}
			c.log.Warn("request attempt failed",
				"path", req.Path,
				"attempt", attempt,
				"maxAttempts", c.maxRetries+1,
				"error", err,
			)
			var ne *NetworkError
			if !c.retryClientErrors && errors.As(err, &ne) && ne.IsClientError() {
				return util.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		if ctx.Err() != nil {
			return callerErr(ctx)
		}
		return err
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("robin: decode %s response: %w", req.Path, err)
	}
	return nil
}
