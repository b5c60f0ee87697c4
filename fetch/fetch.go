/*
DESCRIPTION
  fetch.go implements the segment and playlist fetcher: the sole
  source of fatal, surfaced errors in this system (spec §7's second
  error band). Retries transient failures with backoff and paces
  requests with a token-bucket limiter so a fast origin or a tight live
  poll loop can't be hammered by this client.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fetch provides the HTTP client used to retrieve playlists
// and segments, with bounded retry and request pacing.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/ausocean/utils/logging"
)

// Default tuning, overridable via Option.
const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultMaxBodySize = 64 << 20 // 64 MiB; generous for one TS segment
	defaultRateLimit   = 10       // requests per second
)

// Client fetches playlist and segment bodies over HTTP, retrying
// transient failures and pacing requests.
type Client struct {
	hc          *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	maxBody     int64
	log         logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithMaxAttempts sets how many times a request is attempted before
// giving up (1 disables retry).
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithRateLimit sets the maximum sustained requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithMaxBodySize bounds how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// New returns a ready-to-use Client, logging via log.
func New(log logging.Logger, opts ...Option) *Client {
	c := &Client{
		hc:          &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		maxBody:     defaultMaxBodySize,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url, retrying transient failures (network errors and 5xx
// responses) up to the configured attempt count with linear backoff.
// A non-2xx response other than a retryable 5xx is returned
// immediately as a fatal error.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "fetch: rate limiter wait")
		}

		body, retryable, err := c.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.log.Debug("fetch attempt failed", "url", url, "attempt", attempt, "error", err.Error())
		if !retryable || attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return nil, errors.Wrapf(lastErr, "fetch: %s: all %d attempts failed", url, c.maxAttempts)
}

func (c *Client) attempt(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "building request")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, "doing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, errors.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errors.Errorf("unexpected status: %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, true, errors.Wrap(err, "reading body")
	}
	return b, false, nil
}
