// Package httpretry retries idempotent calls to external HTTP APIs with
// capped exponential backoff and full jitter.
package httpretry

import (
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/pitchperfect/waitlist/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *Client satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps an HTTPDoer with retries.
type Client struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option tunes a Client.
type Option func(*Client)

// WithBackoff sets the first retry delay and the cap.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// New wraps client. A nil client uses an http.Client with a 30s timeout.
// maxRetries counts attempts after the first; zero or less means 3.
func New(client HTTPDoer, maxRetries int, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	c := &Client{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do executes req, retrying on 429, 5xx gateway errors and network errors.
// Client errors and context cancellation are not retried. The final
// attempt's response is returned as-is so the caller can read the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := c.delay(attempt)
			logger.Debug("http retry", "attempt", attempt, "max", c.maxRetries, "host", req.URL.Host, "path", req.URL.Path, "wait", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, lastErr
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !retryable(resp.StatusCode) || attempt == c.maxRetries {
			return resp, nil
		}

		// Drain for connection reuse.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// delay is random(0, min(maxDelay, baseDelay * 2^(attempt-1))), at least
// a tenth of baseDelay.
func (c *Client) delay(attempt int) time.Duration {
	d := c.baseDelay << (attempt - 1)
	if d > c.maxDelay || d <= 0 {
		d = c.maxDelay
	}
	jittered := time.Duration(rand.Int64N(int64(d) + 1))
	if floor := c.baseDelay / 10; jittered < floor {
		jittered = floor
	}
	return jittered
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
