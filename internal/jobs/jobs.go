package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/deltabot/delta/internal/hls"
	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

// RetryPolicy controls how fetches inside a job are retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Delay:    2 * time.Second,
		Timeout:  60 * time.Second,
	}
}

// TransferJob describes one page-to-file transfer. FileName is an optional
// override; when empty the downloader derives a name from the page URL.
type TransferJob struct {
	ID               string
	URL              string
	OutputDir        string
	FileName         string
	Quality          hls.Quality
	Retry            RetryPolicy
	HTTPClientConfig utils.HTTPClientConfig
	Progress         *progress.Tracker
	Metadata         map[string]any
}

func NewTransferJob(url, outputDir string, quality hls.Quality) *TransferJob {
	return &TransferJob{
		ID:        uuid.New().String(),
		URL:       url,
		OutputDir: outputDir,
		Quality:   quality,
		Retry:     DefaultRetryPolicy(),
		Metadata:  make(map[string]any),
	}
}
