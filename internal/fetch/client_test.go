package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/RealChuan/hlsget/internal/model"
)

func testURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", s, err)
	}
	return u
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "hlsget-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("X-Custom"); got != "yes" {
			t.Errorf("X-Custom = %q", got)
		}
		w.Write([]byte("manifest body"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "hlsget-test", map[string]string{"X-Custom": "yes"})

	data, err := client.Get(context.Background(), testURL(t, server.URL))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "manifest body" {
		t.Errorf("body = %q", data)
	}
}

func TestClient_FetchSegment_ByteRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=100-149" {
			t.Errorf("Range = %q, want bytes=100-149", got)
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("partial"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "hlsget-test", nil)
	seg := &model.Segment{
		URI:   testURL(t, server.URL),
		Range: &model.ByteRange{Offset: 100, Length: 50},
	}

	data, err := client.FetchSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("FetchSegment: %v", err)
	}
	if string(data) != "partial" {
		t.Errorf("body = %q", data)
	}
}

func TestClient_FetchSegment_RangeWithoutPartialContent(t *testing.T) {
	// A server ignoring the Range header would hand back the whole
	// resource; treating that as the requested range would corrupt the
	// output, so it must fail.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("entire resource"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "hlsget-test", nil)
	seg := &model.Segment{
		URI:   testURL(t, server.URL),
		Range: &model.ByteRange{Offset: 0, Length: 5},
	}

	if _, err := client.FetchSegment(context.Background(), seg); err == nil {
		t.Fatal("expected error when Range is answered with 200")
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		client := NewClient(5*time.Second, "hlsget-test", nil)
		_, err := client.Get(context.Background(), testURL(t, server.URL))
		server.Close()

		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
			continue
		}
		var ferr *FetchError
		if !errors.As(err, &ferr) {
			t.Errorf("status %d: error %v is not *FetchError", tt.status, err)
			continue
		}
		if ferr.StatusCode != tt.status {
			t.Errorf("StatusCode = %d, want %d", ferr.StatusCode, tt.status)
		}
		if ferr.Transient != tt.wantTransient {
			t.Errorf("status %d: Transient = %v, want %v", tt.status, ferr.Transient, tt.wantTransient)
		}
	}
}

func TestClient_TransportErrorIsTransient(t *testing.T) {
	client := NewClient(time.Second, "hlsget-test", nil)

	// Nothing listens here.
	_, err := client.Get(context.Background(), testURL(t, "http://127.0.0.1:1/x.m3u8"))
	if err == nil {
		t.Fatal("expected error")
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error %v is not *FetchError", err)
	}
	if !ferr.Transient {
		t.Error("transport errors should be transient")
	}
}
