package missav

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/deltabot/delta/internal/ffmpeg"
	"github.com/deltabot/delta/internal/hls"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/utils"
)

// Download runs the full page-to-file pipeline. It never returns an error:
// every stage failure is converted into a terminal "failed" status on the
// job's tracker, and the last status text is the definitive explanation. On
// success the returned path points at the finished file.
func (d *Downloader) Download(ctx context.Context, job *jobs.TransferJob) (bool, string) {
	tracker := job.Progress
	client := d.client(job)

	tracker.SetStatus("Fetching video page")
	page, err := fetchWithRetry(ctx, client, job.URL, job.Retry)
	if err != nil {
		log.Error().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Page fetch failed: %v", err)
		tracker.Fail("Failed to fetch video page")
		return false, ""
	}

	identifier := extractIdentifier(string(page))
	if identifier == "" {
		tracker.Fail("Failed to extract video information")
		return false, ""
	}
	log.Debug().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Extracted identifier %s", identifier)

	fileName := deriveFileName(job.FileName, job.URL)
	tracker.SetFileName(fileName)

	tracker.SetStatus("Processing playlist")
	masterBody, err := fetchWithRetry(ctx, client, d.playlistURL(identifier), job.Retry)
	if err != nil {
		log.Error().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Playlist fetch failed: %v", err)
		tracker.Fail("Failed to fetch playlist")
		return false, ""
	}
	master, err := hls.ParseMaster(string(masterBody))
	if err != nil {
		tracker.Fail(fmt.Sprintf("Failed to process playlist: %v", err))
		return false, ""
	}
	variant, err := hls.SelectVariant(master, job.Quality)
	if err != nil {
		tracker.Fail("Failed to process playlist: no quality variants")
		return false, ""
	}
	log.Debug().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Selected %s variant %s (bandwidth %d)", job.Quality, variant.URI, variant.Bandwidth)

	mediaURL := d.mediaURL(identifier, variant.URI)
	mediaBody, err := fetchWithRetry(ctx, client, mediaURL, job.Retry)
	if err != nil {
		log.Error().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Variant fetch failed: %v", err)
		tracker.Fail("Failed to fetch quality variant")
		return false, ""
	}
	media, err := hls.ParseMedia(string(mediaBody))
	if err != nil {
		tracker.Fail(fmt.Sprintf("Failed to process variant playlist: %v", err))
		return false, ""
	}

	tracker.SetStatus("Estimating size")
	var prober hls.SegmentProber
	if p, err := newHeadProber(client, mediaURL); err == nil {
		prober = p
	}
	estimate := hls.Estimate(ctx, media, prober, job.Quality)
	adjusted := hls.ApplyQualityMargin(estimate.TotalBytes, job.Quality)
	log.Debug().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Estimated %d bytes over %d segments via %s (adjusted %d)", estimate.TotalBytes, media.SegmentCount(), estimate.Method, adjusted)
	tracker.SetTotal(adjusted)
	var perSegment int64
	if count := media.SegmentCount(); count > 0 && adjusted > 0 {
		perSegment = adjusted / int64(count)
		tracker.SetBytesPerSegment(perSegment)
	}

	outputPath := filepath.Join(job.OutputDir, fileName+".mp4")
	if _, err := os.Stat(outputPath); err == nil {
		outputPath = utils.RenewOutputPath(outputPath)
	}

	tracker.SetStatus("Starting download")
	runErr := d.runner().Run(ctx, ffmpeg.RunOptions{
		SourceURL:     mediaURL,
		OutputPath:    outputPath,
		UserAgent:     job.HTTPClientConfig.UserAgent,
		EstimatedSize: adjusted,
		TotalDuration: media.TotalDuration(),
		SegmentSize:   perSegment,
		OnDelta: func(delta int64) {
			tracker.AddBytes(delta, "Downloading")
		},
		OnSegment: func() {
			tracker.AddSegments(1, "Downloading")
		},
	})
	if ctx.Err() != nil {
		tracker.Fail("Download cancelled")
		return false, ""
	}
	if runErr != nil {
		log.Error().Str("op", "missav/download").Str("jobId", job.ID).Msgf("Transfer failed: %v", runErr)
		tracker.Fail(fmt.Sprintf("Download failed: %v", runErr))
		return false, ""
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		tracker.Fail("Download failed: output file missing or empty")
		return false, ""
	}
	tracker.Complete(info.Size())
	return true, outputPath
}
