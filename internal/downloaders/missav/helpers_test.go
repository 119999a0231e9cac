package missav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/utils"
)

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"single token",
			"<script>eval(...m3u8|abc123|com|surrit|https|video...)</script>",
			"abc123",
		},
		{
			"tokens reversed and hyphen joined",
			"...m3u8|9a8b|12f3|e4d5|com|surrit|https|video...",
			"e4d5-12f3-9a8b",
		},
		{
			"no marker",
			"<html><body>plain page</body></html>",
			"",
		},
		{
			"uppercase tokens rejected",
			"...m3u8|ABC|com|surrit|https|video...",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractIdentifier(tt.html); got != tt.want {
				t.Errorf("extractIdentifier = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveFileName(t *testing.T) {
	tests := []struct {
		name     string
		override string
		url      string
		want     string
	}{
		{"override wins", "my video", "https://example.com/en/abc-123", "my_video"},
		{"slug from path", "", "https://example.com/en/abc-123", "abc-123"},
		{"slug with suffix words", "", "https://example.com/abc-123-uncensored-leak", "abc-123-uncensored-leak"},
		{"trailing slash", "", "https://example.com/en/abc-123/", "abc-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveFileName(tt.override, tt.url); got != tt.want {
				t.Errorf("deriveFileName(%q, %q) = %q, want %q", tt.override, tt.url, got, tt.want)
			}
		})
	}
}

func TestDeriveFileNameTimestampFallback(t *testing.T) {
	got := deriveFileName("", "https://example.com/en/watch")
	if !strings.HasPrefix(got, "video_") {
		t.Errorf("fallback name = %q, want video_<unix> shape", got)
	}
}

func testRetryPolicy() jobs.RetryPolicy {
	return jobs.RetryPolicy{Attempts: 3, Delay: time.Millisecond, Timeout: time.Second}
}

func TestFetchWithRetryRecovers(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := utils.NewDeltaHTTPClient(utils.HTTPClientConfig{})
	body, err := fetchWithRetry(context.Background(), client, server.URL, testRetryPolicy())
	if err != nil {
		t.Fatalf("fetchWithRetry failed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q, want %q", body, "payload")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestFetchWithRetryExhausted(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := utils.NewDeltaHTTPClient(utils.HTTPClientConfig{})
	_, err := fetchWithRetry(context.Background(), client, server.URL, testRetryPolicy())
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Status != http.StatusForbidden || ferr.Attempts != 3 {
		t.Errorf("FetchError = %+v, want status 403 over 3 attempts", ferr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHeadProber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "HEAD" {
			t.Errorf("method = %q, want HEAD", r.Method)
		}
		if r.URL.Path != "/abc123/480p/seg7.ts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Length", "2048")
	}))
	defer server.Close()

	client := utils.NewDeltaHTTPClient(utils.HTTPClientConfig{})
	prober, err := newHeadProber(client, server.URL+"/abc123/480p/video.m3u8")
	if err != nil {
		t.Fatalf("newHeadProber failed: %v", err)
	}
	size, err := prober.ProbeSize(context.Background(), "seg7.ts")
	if err != nil {
		t.Fatalf("ProbeSize failed: %v", err)
	}
	if size != 2048 {
		t.Errorf("size = %d, want 2048", size)
	}
}

func TestHeadProberErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := utils.NewDeltaHTTPClient(utils.HTTPClientConfig{})
	prober, err := newHeadProber(client, server.URL+"/abc123/480p/video.m3u8")
	if err != nil {
		t.Fatalf("newHeadProber failed: %v", err)
	}
	if _, err := prober.ProbeSize(context.Background(), "seg0.ts"); err == nil {
		t.Error("expected error for 404 probe")
	}
}
