package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/observability"
)

const (
	defaultTimeout = 30 * time.Second

	// MaxBodySize caps downloaded documents.
	MaxBodySize = 32 << 20
)

// Client downloads documents over HTTP with retries.
type Client struct {
	http     *http.Client
	attempts int
	delay    time.Duration
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithRetry overrides the attempt count and initial backoff delay.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient returns a Client using hc, or a client with a 30 second timeout
// when hc is nil.
func NewClient(hc *http.Client, opts ...ClientOption) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	c := &Client{http: hc, attempts: 3, delay: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and returns the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		data, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid url %q", url)
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/toml, */*")

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrCodeTimeout, err, "fetch %s", url)
		}
		return nil, &RetryableError{Err: errs.Wrap(errs.ErrCodeNetwork, err, "fetch %s", url)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(url, resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &RetryableError{Err: errs.Wrap(errs.ErrCodeNetwork, err, "read %s", url)}
	}
	if len(data) > MaxBodySize {
		return nil, errs.New(errs.ErrCodeInvalidInput, "%s exceeds %d bytes", url, MaxBodySize)
	}
	return data, nil
}

func checkStatus(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errs.New(errs.ErrCodeNotFound, "%s: status %d", url, code)
	case code == http.StatusTooManyRequests, code >= 500:
		return &RetryableError{Err: errs.New(errs.ErrCodeNetwork, "%s: status %d", url, code)}
	default:
		return errs.New(errs.ErrCodeNetwork, "%s: status %d", url, code)
	}
}

// String implements fmt.Stringer for debugging.
func (c *Client) String() string {
	return fmt.Sprintf("httputil.Client{attempts: %d, delay: %s}", c.attempts, c.delay)
}
