package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RealChuan/hlsget/internal/model"
)

func TestBackoff_Curve(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Exponent: 2, Max: 500 * time.Millisecond}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond, // capped
		500 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("after Reset, delay = %v, want 100ms", got)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Exponent: 2, Max: time.Second, Jitter: 0.5}

	for i := 0; i < 50; i++ {
		b.Reset()
		d := b.Next()
		if d < 100*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 150ms]", d)
		}
	}
}

// newTestFetcher wires a Fetcher whose waits return instantly.
func newTestFetcher(policy RetryPolicy) *Fetcher {
	f := NewFetcher(NewClient(5*time.Second, "hlsget-test", nil), policy)
	f.wait = func(context.Context, time.Duration) error { return nil }
	return f
}

func flakyServer(t *testing.T, failures int32, failStatus int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= failures {
			w.WriteHeader(failStatus)
			return
		}
		w.Write([]byte("segment data"))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestFetcher_RetriesTransientThenSucceeds(t *testing.T) {
	server, calls := flakyServer(t, 2, http.StatusServiceUnavailable)

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 3
	f := newTestFetcher(policy)

	seg := &model.Segment{URI: testURL(t, server.URL)}
	data, attempts, err := f.Fetch(context.Background(), seg)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "segment data" {
		t.Errorf("body = %q", data)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestFetcher_BudgetExhausted(t *testing.T) {
	server, _ := flakyServer(t, 10, http.StatusServiceUnavailable)

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 3
	f := newTestFetcher(policy)

	seg := &model.Segment{URI: testURL(t, server.URL)}
	_, attempts, err := f.Fetch(context.Background(), seg)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error %v is not *FetchError", err)
	}
}

func TestFetcher_NonRetryableFailsImmediately(t *testing.T) {
	server, calls := flakyServer(t, 10, http.StatusNotFound)

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 5
	f := newTestFetcher(policy)

	seg := &model.Segment{URI: testURL(t, server.URL)}
	_, attempts, err := f.Fetch(context.Background(), seg)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestFetcher_429PolicySwitch(t *testing.T) {
	tests := []struct {
		name         string
		retryOn429   bool
		wantAttempts int
	}{
		{"retryable by default", true, 3},
		{"fatal when disabled", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := flakyServer(t, 2, http.StatusTooManyRequests)

			policy := DefaultRetryPolicy()
			policy.MaxAttempts = 3
			policy.RetryOn429 = tt.retryOn429
			f := newTestFetcher(policy)

			seg := &model.Segment{URI: testURL(t, server.URL)}
			_, attempts, err := f.Fetch(context.Background(), seg)
			if tt.retryOn429 {
				if err != nil {
					t.Fatalf("Fetch: %v", err)
				}
			} else if err == nil {
				t.Fatal("expected error with 429 retries disabled")
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if got := atomic.LoadInt32(calls); got != int32(tt.wantAttempts) {
				t.Errorf("server saw %d calls, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestFetcher_CancelDuringBackoff(t *testing.T) {
	server, _ := flakyServer(t, 10, http.StatusServiceUnavailable)

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 10

	ctx, cancel := context.WithCancel(context.Background())
	f := NewFetcher(NewClient(5*time.Second, "hlsget-test", nil), policy)
	f.wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	seg := &model.Segment{URI: testURL(t, server.URL)}
	_, _, err := f.Fetch(ctx, seg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
