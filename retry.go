package kitabi

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// retryAnalyzer wraps a CloudAnalyzer and retries transient HTTP errors
// (429 Too Many Requests and 503 Service Unavailable) with exponential backoff.
type retryAnalyzer struct {
	inner       CloudAnalyzer
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration // overall timeout across all attempts; 0 = no limit
	logger      *slog.Logger
}

// RetryOption configures WithRetry.
type RetryOption func(*retryAnalyzer)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryAnalyzer) { r.maxAttempts = n }
}

// RetryBaseDelay sets the delay before the second attempt (default: 1s).
// Each subsequent delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryAnalyzer) { r.baseDelay = d }
}

// RetryTimeout bounds the whole retry sequence. The zero value disables it.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryAnalyzer) { r.timeout = d }
}

// RetryLogger sets the logger for retry events. Retries log at WARN and
// exhausted attempts at ERROR.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryAnalyzer) { r.logger = l }
}

// WithRetry wraps c with automatic retry on transient HTTP errors. When the
// error carries a Retry-After duration the delay is at least that long.
//
//	cloud = kitabi.WithRetry(client)
//	cloud = kitabi.WithRetry(client, kitabi.RetryMaxAttempts(5))
func WithRetry(c CloudAnalyzer, opts ...RetryOption) CloudAnalyzer {
	r := &retryAnalyzer{
		inner:       c,
		maxAttempts: 3,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = nopLogger
	}
	r.maxAttempts = max(r.maxAttempts, 1)
	return r
}

func (r *retryAnalyzer) Name() string { return r.inner.Name() }

// Analyze calls the inner analyzer until it succeeds, fails with a
// non-transient error, or runs out of attempts.
func (r *retryAnalyzer) Analyze(ctx context.Context, pdf []byte, pages PageRange) (Analysis, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var last error
	for attempt := range r.maxAttempts {
		a, err := r.inner.Analyze(ctx, pdf, pages)
		herr, transient := transientHTTP(err)
		if !transient {
			return a, err
		}
		last = err
		if attempt == r.maxAttempts-1 {
			break
		}
		delay := retryDelay(r.baseDelay, attempt, err)
		r.logger.Warn("cloud call throttled, retrying",
			"service", r.inner.Name(), "status", herr.Status, "pages", pages,
			"attempt", attempt+1, "max_attempts", r.maxAttempts, "delay", delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return Analysis{}, err
		}
	}
	r.logger.Error("cloud call failed after retries",
		"service", r.inner.Name(), "attempts", r.maxAttempts, "error", last)
	return Analysis{}, last
}

// withTimeout applies r.timeout unless ctx already ends sooner.
func (r *retryAnalyzer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	deadline := time.Now().Add(r.timeout)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

// transientHTTP reports whether err is a 429 or 503 from the service.
func transientHTTP(err error) (*ErrHTTP, bool) {
	var e *ErrHTTP
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// retryDelay is the backoff for attempt i, raised to the server's
// Retry-After when that is longer.
func retryDelay(base time.Duration, i int, err error) time.Duration {
	d := retryBackoff(base, i)
	var e *ErrHTTP
	if errors.As(err, &e) && e.RetryAfter > d {
		return e.RetryAfter
	}
	return d
}

// retryBackoff returns base * 2^i plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base << i
	return exp + time.Duration(rand.Int64N(int64(exp)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ CloudAnalyzer = (*retryAnalyzer)(nil)
