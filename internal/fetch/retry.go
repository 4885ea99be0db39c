package fetch

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/RealChuan/hlsget/internal/model"
)

// Backoff computes retry delays: Base doubled (or whatever Exponent
// says) per attempt, capped at Max, with up to Jitter fraction of
// random spread added. The zero value is unusable; take one from
// RetryPolicy defaults or fill every field.
type Backoff struct {
	Base     time.Duration
	Exponent float64
	Max      time.Duration
	Jitter   float64

	attempt int
}

// Next returns the delay to wait before the upcoming retry and advances
// the attempt counter.
func (b *Backoff) Next() time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(b.Exponent, float64(b.attempt)))
	b.attempt++
	if d > b.Max || d < 0 {
		d = b.Max
	}
	if b.Jitter > 0 {
		d += time.Duration(rand.Float64() * b.Jitter * float64(d))
	}
	return d
}

// Reset rewinds the attempt counter so the next delay is Base again.
func (b *Backoff) Reset() { b.attempt = 0 }

// RetryPolicy bounds the retry loop for one segment.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	RetryOn429  bool
}

// DefaultRetryPolicy mirrors the settings defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff: Backoff{
			Base:     500 * time.Millisecond,
			Exponent: 2.0,
			Max:      15 * time.Second,
			Jitter:   0.5,
		},
		RetryOn429: true,
	}
}

// Retryable reports whether err is worth another attempt under the
// policy. Only *FetchError values marked transient qualify; a 429
// additionally requires RetryOn429.
func (p RetryPolicy) Retryable(err error) bool {
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		return false
	}
	if ferr.StatusCode == http.StatusTooManyRequests {
		return p.RetryOn429
	}
	return ferr.Transient
}

// Fetcher retrieves segments with bounded retries.
type Fetcher struct {
	client *Client
	policy RetryPolicy

	// wait is replaceable in tests so retry logic is exercised without
	// real sleeps.
	wait func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher around client with the given policy.
func NewFetcher(client *Client, policy RetryPolicy) *Fetcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Fetcher{client: client, policy: policy, wait: waitCtx}
}

// Fetch retrieves one segment's raw bytes, retrying transient failures
// with backoff. It returns the bytes, the number of attempts made, and
// the final error once the budget is exhausted (or a non-retryable
// failure occurs). Cancelling ctx interrupts both requests and backoff
// waits.
func (f *Fetcher) Fetch(ctx context.Context, seg *model.Segment) ([]byte, int, error) {
	backoff := f.policy.Backoff
	backoff.Reset()

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		data, err := f.client.FetchSegment(ctx, seg)
		if err == nil {
			return data, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		if !f.policy.Retryable(err) || attempt == f.policy.MaxAttempts {
			return nil, attempt, err
		}
		if err := f.wait(ctx, backoff.Next()); err != nil {
			return nil, attempt, err
		}
	}
	return nil, f.policy.MaxAttempts, lastErr
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
