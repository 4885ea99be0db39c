package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/RealChuan/hlsget/internal/model"
)

// FetchError describes a failed retrieval. StatusCode is zero for
// transport-level failures. Transient reports whether the failure class
// is worth retrying (the caller's policy may still veto, e.g. for 429).
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// headerTransport injects a static header map into every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Client wraps HTTP operations with the configuration shared by all
// requests of a download job.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client with the given per-request timeout and
// User-Agent. A non-empty headers map is sent with every request.
func NewClient(timeout time.Duration, userAgent string, headers map[string]string) *Client {
	transport := http.DefaultTransport
	if len(headers) > 0 {
		transport = &headerTransport{headers: headers, base: http.DefaultTransport}
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
	}
}

// Get retrieves a whole resource body. Used for playlists and keys.
func (c *Client) Get(ctx context.Context, u *url.URL) ([]byte, error) {
	return c.get(ctx, u, nil)
}

// FetchSegment retrieves one segment's raw bytes, honoring its byte
// range when declared.
func (c *Client) FetchSegment(ctx context.Context, seg *model.Segment) ([]byte, error) {
	return c.get(ctx, seg.URI, seg.Range)
}

func (c *Client) get(ctx context.Context, u *url.URL, br *model.ByteRange) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	wantStatus := http.StatusOK
	if br != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", br.Offset, br.Offset+br.Length-1))
		wantStatus = http.StatusPartialContent
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Covers timeouts, connection resets, DNS failures: all transient.
		return nil, &FetchError{URL: u.String(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return nil, &FetchError{
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Transient: true, Err: err}
	}
	return body, nil
}
