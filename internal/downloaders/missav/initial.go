package missav

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/deltabot/delta/internal/ffmpeg"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

const defaultBaseURL = "https://surrit.com"

// TransferRunner is the seam between the orchestrator and the external
// transfer tool.
type TransferRunner interface {
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
}

// Downloader turns a video page URL into a local media file. Zero values
// fall back to a fresh HTTP client per job and the real ffmpeg executor.
type Downloader struct {
	Client  utils.HTTPDoer
	Runner  TransferRunner
	BaseURL string
}

func (d *Downloader) baseURL() string {
	if d.BaseURL != "" {
		return strings.TrimSuffix(d.BaseURL, "/")
	}
	return defaultBaseURL
}

func (d *Downloader) client(job *jobs.TransferJob) utils.HTTPDoer {
	if d.Client != nil {
		return d.Client
	}
	return utils.NewDeltaHTTPClient(job.HTTPClientConfig)
}

func (d *Downloader) runner() TransferRunner {
	if d.Runner != nil {
		return d.Runner
	}
	return &ffmpeg.Executor{Tools: ffmpeg.DefaultToolset()}
}

func (d *Downloader) playlistURL(identifier string) string {
	return fmt.Sprintf("%s/%s/playlist.m3u8", d.baseURL(), identifier)
}

func (d *Downloader) mediaURL(identifier, variantURI string) string {
	return fmt.Sprintf("%s/%s/%s", d.baseURL(), identifier, variantURI)
}

func (d *Downloader) ValidateJob(job *jobs.TransferJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	if job.OutputDir == "" {
		return fmt.Errorf("output directory not set")
	}
	return nil
}

func (d *Downloader) BuildJob(job *jobs.TransferJob) error {
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %v", err)
	}
	if job.Retry.Attempts < 1 {
		job.Retry = jobs.DefaultRetryPolicy()
	}
	if job.HTTPClientConfig.UserAgent == "" {
		job.HTTPClientConfig.UserAgent = utils.GetRandomUserAgent()
	}
	if job.HTTPClientConfig.Timeout == 0 {
		job.HTTPClientConfig.Timeout = job.Retry.Timeout
	}
	if job.Progress == nil {
		job.Progress = progress.NewTracker(0)
	}
	return nil
}
