package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deltabot/delta/internal/downloaders/missav"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/output"
	"github.com/deltabot/delta/internal/progress"
)

const consoleUpdateInterval = time.Second

// Run executes the given jobs across numWorkers workers and blocks until all
// of them finish. Each job reports through its own console status line.
func Run(ctx context.Context, jobList []*jobs.TransferJob, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(jobList) {
		numWorkers = len(jobList)
	}

	downloader := &missav.Downloader{}
	jobCh := make(chan *jobs.TransferJob, len(jobList))
	for _, job := range jobList {
		jobCh <- job
	}
	close(jobCh)

	var failures atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processJobs(ctx, downloader, jobCh, &failures)
		}(i)
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d of %d downloads failed", n, len(jobList))
	}
	return nil
}

func processJobs(ctx context.Context, downloader *missav.Downloader, jobCh <-chan *jobs.TransferJob, failures *atomic.Int64) {
	for job := range jobCh {
		if ctx.Err() != nil {
			failures.Add(1)
			continue
		}
		if job.Progress == nil {
			job.Progress = progress.NewTracker(consoleUpdateInterval, output.NewConsoleObserver())
		}
		if err := downloader.ValidateJob(job); err != nil {
			output.PrintError(fmt.Sprintf("Invalid job %s: %v", job.URL, err))
			failures.Add(1)
			continue
		}
		if err := downloader.BuildJob(job); err != nil {
			output.PrintError(fmt.Sprintf("Failed to prepare job %s: %v", job.URL, err))
			failures.Add(1)
			continue
		}
		ok, path := downloader.Download(ctx, job)
		if !ok {
			failures.Add(1)
			continue
		}
		log.Debug().Str("op", "scheduler/scheduler").Str("jobId", job.ID).Msgf("Finished %s", path)
	}
}
