package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type TransferErrorKind int

const (
	ProcessFailed TransferErrorKind = iota
	OutputMissing
)

// TransferError reports a failed ffmpeg transfer with enough context for the
// user-facing status line.
type TransferError struct {
	Kind       TransferErrorKind
	ExitCode   int
	StderrTail string
}

func (e *TransferError) Error() string {
	switch e.Kind {
	case OutputMissing:
		return "transfer failed: output file missing or empty"
	default:
		if e.StderrTail != "" {
			return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.StderrTail)
		}
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}
}

// Toolset holds the external tool locations. Zero values resolve through
// PATH.
type Toolset struct {
	FFmpeg  string
	FFprobe string
}

func DefaultToolset() Toolset {
	return Toolset{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

func (t Toolset) ffmpeg() string {
	if t.FFmpeg != "" {
		return t.FFmpeg
	}
	return "ffmpeg"
}

func (t Toolset) ffprobe() string {
	if t.FFprobe != "" {
		return t.FFprobe
	}
	return "ffprobe"
}

// Executor drives one ffmpeg remux per call and feeds byte deltas recovered
// from its diagnostic stream to the caller.
type Executor struct {
	Tools Toolset
}

type RunOptions struct {
	SourceURL  string
	OutputPath string
	UserAgent  string
	// EstimatedSize and TotalDuration enable the clock-time progress
	// heuristic for streams whose diagnostics carry few byte counters.
	EstimatedSize int64
	TotalDuration time.Duration
	// SegmentSize lets segment-open lines stand in for byte counters
	// until the first real counter shows up.
	SegmentSize int64
	OnDelta     func(int64)
	OnSegment   func()
}

const stderrTailLines = 12

// Run launches the transfer and blocks until both the process and its
// diagnostic reader have finished. Success requires a zero exit status and a
// nonzero output file. On cancellation the child is killed and partial
// output removed.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	args := buildTransferArgs(opts)
	cmd := exec.CommandContext(ctx, e.Tools.ffmpeg(), args...)
	log.Debug().Str("op", "ffmpeg/executor").Msgf("Executing ffmpeg command: %s", cmd.String())

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting ffmpeg: %v", err)
	}

	monitor := newProgressMonitor(opts.EstimatedSize, opts.TotalDuration)
	monitor.segmentBytes = opts.SegmentSize
	var tail []string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tail = consumeDiagnostics(stderr, monitor, opts.OnDelta, opts.OnSegment)
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		os.Remove(opts.OutputPath)
		return ctx.Err()
	}
	if waitErr != nil {
		exitCode := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		log.Error().Str("op", "ffmpeg/executor").Int("exitCode", exitCode).Msgf("FFmpeg output:\n%s", strings.Join(tail, "\n"))
		return &TransferError{Kind: ProcessFailed, ExitCode: exitCode, StderrTail: strings.Join(tail, " | ")}
	}
	info, err := os.Stat(opts.OutputPath)
	if err != nil || info.Size() == 0 {
		return &TransferError{Kind: OutputMissing}
	}
	return nil
}

func buildTransferArgs(opts RunOptions) []string {
	return []string{
		"-y",
		"-headers", fmt.Sprintf("User-Agent: %s", opts.UserAgent),
		"-i", opts.SourceURL,
		"-c", "copy",
		"-loglevel", "info",
		opts.OutputPath,
	}
}

// consumeDiagnostics reads the stream line by line, forwards recovered byte
// deltas and segment opens, and returns the last lines for error reporting.
func consumeDiagnostics(r io.Reader, monitor *progressMonitor, onDelta func(int64), onSegment func()) []string {
	var tail []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
		if monitor.ObserveSegment(line) {
			if onSegment != nil {
				onSegment()
			}
			continue
		}
		if delta := monitor.Observe(line); delta > 0 && onDelta != nil {
			onDelta(delta)
		}
	}
	return tail
}
