// Package httputil holds the HTTP retry policy used when fetching election pages.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"senkyo/internal/metrics"
)

// RetryBaseDelay is the first backoff on a throttled response; it doubles on
// each attempt. Tests shrink it.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps a server supplied Retry-After.
var MaxRetryAfter = time.Minute

const defaultMaxRetries = 3

// DoWithRetry executes req and retries on 429 and 503 with exponential
// backoff, or the server's Retry-After (seconds) when present. maxRetries <= 0
// uses the default. Each attempt is recorded in metrics. After the last retry
// the throttled response is returned unread so the caller can report it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			metrics.RecordHTTP(0, err, time.Since(start), 0)
			return nil, err
		}
		metrics.RecordHTTP(resp.StatusCode, nil, time.Since(start), 0)

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > MaxRetryAfter {
			d = MaxRetryAfter
		}
		return d
	}
	return RetryBaseDelay << attempt
}
