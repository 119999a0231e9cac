package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// VideoInfo is the subset of ffprobe's JSON output the bot cares about.
type VideoInfo struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (v *VideoInfo) DurationSeconds() float64 {
	d, err := strconv.ParseFloat(v.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return d
}

// Dimensions returns width and height of the first video stream.
func (v *VideoInfo) Dimensions() (int, int) {
	for _, s := range v.Streams {
		if s.CodecType == "video" {
			return s.Width, s.Height
		}
	}
	return 0, 0
}

// ProbeInfo runs ffprobe against a local file and decodes its format and
// stream metadata.
func (t Toolset) ProbeInfo(ctx context.Context, inputPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, t.ffprobe(),
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %v", err)
	}
	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("error decoding ffprobe output: %v", err)
	}
	return &info, nil
}

// ProbeDuration returns a file's duration in seconds.
func (t Toolset) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobe(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %v", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing video duration: %v", err)
	}
	return duration, nil
}

// GenerateThumbnail grabs a single frame at 10% of the video's duration.
func (t Toolset) GenerateThumbnail(ctx context.Context, inputPath, outputImage string) (string, error) {
	duration, err := t.ProbeDuration(ctx, inputPath)
	if err != nil {
		return "", err
	}
	position := fmt.Sprintf("%.2f", duration*0.1)
	cmd := exec.CommandContext(ctx, t.ffmpeg(),
		"-ss", position,
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", "8",
		outputImage,
		"-y",
	)
	log.Debug().Str("op", "ffmpeg/probe").Msgf("Executing ffmpeg command: %s", cmd.String())
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg error: %v\nOutput: %s", err, string(output))
	}
	return outputImage, nil
}
