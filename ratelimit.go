package kitabi

import (
	"context"
	"sync"
	"time"
)

// rateLimitAnalyzer blocks cloud calls until the per-minute budget allows them.
type rateLimitAnalyzer struct {
	inner CloudAnalyzer
	mu    sync.Mutex
	now   func() time.Time

	// requests started in the last minute
	rpm      int
	requests []time.Time

	// pages billed in the last minute
	ppm   int
	pages []pageEntry
}

type pageEntry struct {
	at    time.Time
	pages int
}

// RateLimitOption configures WithRateLimit.
type RateLimitOption func(*rateLimitAnalyzer)

// RPM sets the maximum analyze requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitAnalyzer) { r.rpm = n }
}

// PPM sets the maximum analyzed pages per minute. Page counts are recorded
// after each successful call, so the call that crosses the budget completes
// and later calls wait for the window to slide.
func PPM(n int) RateLimitOption {
	return func(r *rateLimitAnalyzer) { r.ppm = n }
}

// WithRateLimit wraps c with proactive rate limiting:
//
//	cloud = kitabi.WithRateLimit(client, kitabi.RPM(15))
//	cloud = kitabi.WithRateLimit(kitabi.WithRetry(client), kitabi.RPM(15), kitabi.PPM(2000))
func WithRateLimit(c CloudAnalyzer, opts ...RateLimitOption) CloudAnalyzer {
	r := &rateLimitAnalyzer{inner: c, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitAnalyzer) Name() string { return r.inner.Name() }

func (r *rateLimitAnalyzer) Analyze(ctx context.Context, pdf []byte, pr PageRange) (Analysis, error) {
	if err := r.wait(ctx); err != nil {
		return Analysis{}, err
	}
	a, err := r.inner.Analyze(ctx, pdf, pr)
	if err == nil {
		r.record(len(a.Pages))
	}
	return a, err
}

// wait blocks until both budgets allow a request, or ctx is done.
func (r *rateLimitAnalyzer) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()
		cutoff := now.Add(-time.Minute)
		r.requests = pruneTimes(r.requests, cutoff)
		r.pages = prunePages(r.pages, cutoff)

		rpmOK := r.rpm <= 0 || len(r.requests) < r.rpm
		ppmOK := true
		if r.ppm > 0 {
			var total int
			for _, e := range r.pages {
				total += e.pages
			}
			ppmOK = total < r.ppm
		}

		if rpmOK && ppmOK {
			if r.rpm > 0 {
				r.requests = append(r.requests, now)
			}
			r.mu.Unlock()
			return nil
		}

		// sleep until the oldest blocking entry leaves the window
		var wait time.Duration
		if !rpmOK && len(r.requests) > 0 {
			wait = r.requests[0].Add(time.Minute).Sub(now)
		}
		if !ppmOK && len(r.pages) > 0 {
			if w := r.pages[0].at.Add(time.Minute).Sub(now); wait == 0 || w < wait {
				wait = w
			}
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *rateLimitAnalyzer) record(n int) {
	if r.ppm <= 0 || n <= 0 {
		return
	}
	r.mu.Lock()
	r.pages = append(r.pages, pageEntry{at: r.now(), pages: n})
	r.mu.Unlock()
}

func pruneTimes(s []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(s) && s[i].Before(cutoff) {
		i++
	}
	return s[i:]
}

func prunePages(s []pageEntry, cutoff time.Time) []pageEntry {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}

var _ CloudAnalyzer = (*rateLimitAnalyzer)(nil)
