// Package remote wraps outbound calls to the content-scraping backend and
// the text-generation backend behind bounded concurrency gates, per-target
// timeout policy, and exponential-backoff retry.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxAttempts       = 3
	scrapeConcurrency = 3
	genConcurrency    = 2
)

// Vars rather than consts so tests can shrink the delays.
var (
	retryBaseDelay = 4 * time.Second
	retryMaxDelay  = 60 * time.Second
)

// ErrAuth marks an authentication failure (HTTP 401). Never retried.
var ErrAuth = errors.New("remote: authentication failed")

// HTTPError carries a non-2xx response status from a backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("remote: HTTP %d", e.StatusCode)
}

// EnvelopeError marks a success response whose payload is missing expected
// fields. The call is not retried; the same request would fail the same way.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return "remote: invalid response envelope: " + e.Reason
}

// retryable reports whether an error is worth another attempt: transport
// failures, timeouts, 429 and 5xx. Auth failures, other 4xx, and malformed
// envelopes are permanent.
func retryable(err error) bool {
	if errors.Is(err, ErrAuth) {
		return false
	}
	var envErr *EnvelopeError
	if errors.As(err, &envErr) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}
	return true
}

// withRetry runs op with the shared backoff policy: up to maxAttempts
// attempts, exponential delay from retryBaseDelay capped at retryMaxDelay,
// full jitter.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseDelay
	b.MaxInterval = retryMaxDelay
	b.RandomizationFactor = 1 // full jitter
	bo := backoff.WithContext(backoff.WithMaxRetries(b, maxAttempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// semaphore is a counting semaphore built on a buffered channel; callers
// block until a slot frees. Held across the whole call including retries.
type semaphore chan struct{}

func newSemaphore(n int) semaphore { return make(semaphore, n) }

func (s semaphore) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s semaphore) release() { <-s }

// longTimeoutDomains lists sites known to sit behind anti-bot challenges;
// scrapes against them get the long render timeout instead of the default.
var longTimeoutDomains = []string{
	"ofcom.org.uk",
	"soumu.go.jp",
}

func needsLongTimeout(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range longTimeoutDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
