package missav

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deltabot/delta/internal/ffmpeg"
	"github.com/deltabot/delta/internal/hls"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

const testPage = `<html><script>eval(p,a,c,k...m3u8|abc123|com|surrit|https|video...)</script></html>`

const testMaster = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=100
240p/video.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=500
480p/video.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=900
720p/video.m3u8
`

const testMedia = `#EXTM3U
#EXTINF:6.0,
#EXT-X-BYTERANGE:1000@0
all.ts
#EXTINF:6.0,
#EXT-X-BYTERANGE:1000
all.ts
#EXTINF:6.0,
#EXT-X-BYTERANGE:1000
all.ts
#EXTINF:6.0,
#EXT-X-BYTERANGE:1000
all.ts
#EXT-X-ENDLIST
`

// fakeRunner stands in for the external tool and writes the output file
// itself.
type fakeRunner struct {
	opts     ffmpeg.RunOptions
	payload  []byte
	segments int
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, opts ffmpeg.RunOptions) error {
	f.opts = opts
	if f.err != nil {
		return f.err
	}
	if f.segments > 0 && opts.OnSegment != nil {
		for i := 0; i < f.segments; i++ {
			opts.OnSegment()
		}
	} else if opts.OnDelta != nil {
		opts.OnDelta(int64(len(f.payload)))
	}
	return os.WriteFile(opts.OutputPath, f.payload, 0644)
}

func testJob(t *testing.T, pageURL string) *jobs.TransferJob {
	t.Helper()
	job := jobs.NewTransferJob(pageURL, t.TempDir(), hls.QualityMedium)
	job.Retry = jobs.RetryPolicy{Attempts: 2, Delay: time.Millisecond, Timeout: time.Second}
	job.Progress = progress.NewTracker(time.Minute)
	job.HTTPClientConfig = utils.HTTPClientConfig{UserAgent: "Delta-Bot"}
	return job
}

func TestDownloadEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/abc-123":
			w.Write([]byte(testPage))
		case "/abc123/playlist.m3u8":
			w.Write([]byte(testMaster))
		case "/abc123/480p/video.m3u8":
			w.Write([]byte(testMedia))
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	runner := &fakeRunner{payload: bytes.Repeat([]byte("x"), 4000)}
	d := &Downloader{Runner: runner, BaseURL: server.URL}
	job := testJob(t, server.URL+"/en/abc-123")
	if err := d.ValidateJob(job); err != nil {
		t.Fatalf("ValidateJob failed: %v", err)
	}
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob failed: %v", err)
	}

	ok, path := d.Download(context.Background(), job)
	if !ok {
		t.Fatalf("Download failed, status: %q", job.Progress.Status())
	}
	if filepath.Base(path) != "abc-123.mp4" {
		t.Errorf("output file = %q, want abc-123.mp4", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != 4000 {
		t.Fatalf("output file missing or wrong size: %v", err)
	}

	// The medium variant is the bandwidth-500 one.
	if runner.opts.SourceURL != server.URL+"/abc123/480p/video.m3u8" {
		t.Errorf("transfer source = %q", runner.opts.SourceURL)
	}
	// Byte-range sum 4000 with the medium margin applied.
	if runner.opts.EstimatedSize != 4800 {
		t.Errorf("estimated size = %d, want 4800", runner.opts.EstimatedSize)
	}
	// 4 segments share the adjusted estimate; segment opens advance the
	// tracker by that share when the tool emits no byte counters.
	if runner.opts.SegmentSize != 1200 {
		t.Errorf("segment size = %d, want 1200", runner.opts.SegmentSize)
	}
	if runner.opts.OnSegment == nil {
		t.Error("segment callback not wired")
	}

	snap := job.Progress.Snapshot()
	if snap.Status != "completed" {
		t.Errorf("status = %q, want completed", snap.Status)
	}
	if snap.Completed != 4000 || snap.Total != 4000 {
		t.Errorf("counters = %d/%d, want 4000/4000", snap.Completed, snap.Total)
	}
	if snap.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", snap.Percentage)
	}
}

func TestDownloadSegmentFallbackProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/abc-123":
			w.Write([]byte(testPage))
		case "/abc123/playlist.m3u8":
			w.Write([]byte(testMaster))
		case "/abc123/480p/video.m3u8":
			w.Write([]byte(testMedia))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	// A tool run that only logs segment opens, never byte counters.
	runner := &fakeRunner{payload: bytes.Repeat([]byte("x"), 4800), segments: 4}
	d := &Downloader{Runner: runner, BaseURL: server.URL}
	job := testJob(t, server.URL+"/en/abc-123")
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob failed: %v", err)
	}

	var snaps []progress.Snapshot
	job.Progress.AddObserver(progress.ObserverFunc(func(s progress.Snapshot) {
		snaps = append(snaps, s)
	}))

	ok, _ := d.Download(context.Background(), job)
	if !ok {
		t.Fatalf("Download failed, status: %q", job.Progress.Status())
	}

	// The 4th segment open carries the tracker across the 4800 estimate
	// before the job is marked terminal.
	var sawSegmentProgress bool
	for _, s := range snaps {
		if !s.Terminal && s.Status == "Downloading" && s.Completed == 4800 {
			sawSegmentProgress = true
		}
	}
	if !sawSegmentProgress {
		t.Errorf("no segment-driven progress snapshot observed, snapshots: %+v", snaps)
	}
}

func TestDownloadPageFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := &Downloader{Runner: &fakeRunner{}, BaseURL: server.URL}
	job := testJob(t, server.URL+"/en/abc-123")
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob failed: %v", err)
	}

	ok, path := d.Download(context.Background(), job)
	if ok || path != "" {
		t.Fatalf("Download = %v, %q, want failure with empty path", ok, path)
	}
	if got := job.Progress.Status(); got != "Failed to fetch video page" {
		t.Errorf("status = %q", got)
	}
}

func TestDownloadIdentifierMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing embedded here</body></html>"))
	}))
	defer server.Close()

	d := &Downloader{Runner: &fakeRunner{}, BaseURL: server.URL}
	job := testJob(t, server.URL+"/en/abc-123")
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob failed: %v", err)
	}

	if ok, _ := d.Download(context.Background(), job); ok {
		t.Fatal("Download succeeded on page without identifier")
	}
	if got := job.Progress.Status(); got != "Failed to extract video information" {
		t.Errorf("status = %q", got)
	}
}

func TestDownloadTransferFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/abc-123":
			w.Write([]byte(testPage))
		case "/abc123/playlist.m3u8":
			w.Write([]byte(testMaster))
		case "/abc123/480p/video.m3u8":
			w.Write([]byte(testMedia))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	runner := &fakeRunner{err: &ffmpeg.TransferError{Kind: ffmpeg.ProcessFailed, ExitCode: 1, StderrTail: "403 Forbidden"}}
	d := &Downloader{Runner: runner, BaseURL: server.URL}
	job := testJob(t, server.URL+"/en/abc-123")
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob failed: %v", err)
	}

	if ok, _ := d.Download(context.Background(), job); ok {
		t.Fatal("Download succeeded despite transfer failure")
	}
	status := job.Progress.Status()
	if status == "" || status == "completed" {
		t.Fatalf("status = %q", status)
	}
}

func TestValidateJobRejectsBadScheme(t *testing.T) {
	d := &Downloader{}
	job := jobs.NewTransferJob("ftp://example.com/video", "/tmp", hls.QualityHigh)
	if err := d.ValidateJob(job); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
