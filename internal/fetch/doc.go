// Package fetch retrieves playlist, key and segment bytes over HTTP(S).
//
// Client wraps net/http with the static configuration every request
// shares: timeout, User-Agent, and an optional header map injected via a
// RoundTripper. Fetcher layers the per-segment retry loop on top:
//
//	client := fetch.NewClient(30*time.Second, "hlsget", nil)
//	fetcher := fetch.NewFetcher(client, fetch.RetryPolicy{
//	    MaxAttempts: 5,
//	    Backoff:     fetch.Backoff{Base: 500 * time.Millisecond, Exponent: 2, Max: 15 * time.Second, Jitter: 0.5},
//	    RetryOn429:  true,
//	})
//	data, attempts, err := fetcher.Fetch(ctx, segment)
//
// Transient failures (transport errors, timeouts, 5xx, and by default
// 429) are retried with capped, jittered exponential backoff; other 4xx
// responses fail immediately. Every attempt re-fetches the whole
// segment body, there is no partial resume within one segment.
package fetch
