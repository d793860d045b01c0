package kitabi

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubAnalyzer returns pre-configured results in order.
type stubAnalyzer struct {
	calls   int
	results []stubResult
}

type stubResult struct {
	analysis Analysis
	err      error
}

func (s *stubAnalyzer) Name() string { return "stub" }

func (s *stubAnalyzer) Analyze(_ context.Context, _ []byte, _ PageRange) (Analysis, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i].analysis, s.results[i].err
	}
	return Analysis{}, nil
}

var _ CloudAnalyzer = (*stubAnalyzer)(nil)

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubAnalyzer{results: []stubResult{{analysis: Analysis{Model: "m"}}}}
	c := WithRetry(stub, RetryBaseDelay(0))

	a, err := c.Analyze(context.Background(), nil, PageRange{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Model != "m" {
		t.Errorf("got %q, want %q", a.Model, "m")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithRetry_RetriesTransient(t *testing.T) {
	for _, status := range []int{429, 503} {
		stub := &stubAnalyzer{results: []stubResult{
			{err: &ErrHTTP{Status: status}},
			{analysis: Analysis{Model: "m"}},
		}}
		c := WithRetry(stub, RetryBaseDelay(0))

		if _, err := c.Analyze(context.Background(), nil, PageRange{}); err != nil {
			t.Fatalf("status %d: unexpected error: %v", status, err)
		}
		if stub.calls != 2 {
			t.Errorf("status %d: got %d calls, want 2", status, stub.calls)
		}
	}
}

func TestWithRetry_DoesNotRetryNonTransient(t *testing.T) {
	stub := &stubAnalyzer{results: []stubResult{{err: &ErrHTTP{Status: 400, Body: "bad pdf"}}}}
	c := WithRetry(stub, RetryBaseDelay(0))

	if _, err := c.Analyze(context.Background(), nil, PageRange{}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	transient := stubResult{err: &ErrHTTP{Status: 503}}
	stub := &stubAnalyzer{results: []stubResult{transient, transient, transient, transient}}
	c := WithRetry(stub, RetryBaseDelay(0), RetryMaxAttempts(3))

	_, err := c.Analyze(context.Background(), nil, PageRange{})
	var he *ErrHTTP
	if !errors.As(err, &he) || he.Status != 503 {
		t.Fatalf("err = %v, want last ErrHTTP 503", err)
	}
	if stub.calls != 3 {
		t.Errorf("got %d calls, want 3", stub.calls)
	}
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	stub := &stubAnalyzer{results: []stubResult{{err: &ErrHTTP{Status: 503}}}}
	c := WithRetry(stub, RetryBaseDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, nil, PageRange{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestWithRetry_Name(t *testing.T) {
	if got := WithRetry(&stubAnalyzer{}).Name(); got != "stub" {
		t.Errorf("Name() = %q, want stub", got)
	}
}

func TestRetryDelay_HonoursRetryAfter(t *testing.T) {
	err := &ErrHTTP{Status: 429, RetryAfter: 5 * time.Second}
	if d := retryDelay(time.Millisecond, 0, err); d != 5*time.Second {
		t.Errorf("delay = %v, want 5s", d)
	}
}

func TestRetryBackoff_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 4; i++ {
		exp := base * (1 << i)
		d := retryBackoff(base, i)
		if d < exp || d > exp+exp/2 {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", i, d, exp, exp+exp/2)
		}
	}
}
