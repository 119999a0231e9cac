package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deltabot/delta/internal/hls"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/output"
	"github.com/deltabot/delta/internal/scheduler"
	"github.com/deltabot/delta/internal/utils"
)

var (
	outputDir string
	quality   string
	fileName  string
	workers   int
	retries   int
	timeout   time.Duration
	proxyURL  string
	userAgent string
	headers   []string
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [URL]...",
		Short: "Download videos directly without the bot",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			utils.InitLogger(debug)
			if userAgent == "randomize" || userAgent == "" {
				userAgent = utils.GetRandomUserAgent()
			}
			clientConfig := utils.HTTPClientConfig{
				Timeout:   timeout,
				ProxyURL:  proxyURL,
				UserAgent: userAgent,
				Headers:   utils.ParseHeaderArgs(headers),
			}
			var jobList []*jobs.TransferJob
			for _, url := range args {
				job := jobs.NewTransferJob(url, outputDir, hls.ParseQuality(quality))
				job.Retry = jobs.RetryPolicy{Attempts: retries, Delay: 2 * time.Second, Timeout: timeout}
				job.HTTPClientConfig = clientConfig
				if len(args) == 1 {
					job.FileName = fileName
				}
				jobList = append(jobList, job)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := scheduler.Run(ctx, jobList, workers); err != nil {
				fmt.Println()
				output.PrintError("Encountered failed operation(s)")
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&quality, "quality", "q", "medium", "Quality variant (lowest, medium, high)")
	cmd.Flags().StringVarP(&fileName, "name", "n", "", "Output file name (single URL only, inferred if not provided)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of downloads to run in parallel")
	cmd.Flags().IntVarP(&retries, "retries", "r", 3, "Retry attempts per network fetch")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Timeout per network attempt (eg. 5s, 10m)")
	cmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().StringVarP(&userAgent, "user-agent", "a", "randomize", "User agent")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers; can be specified multiple times")
	return cmd
}
