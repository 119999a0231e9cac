package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const splitRetryLimit = 3

// splitPlan decides how many parts a file of totalSize bytes needs so that
// each part stays under maxPart. When the even split would leave parts within
// 10% of the cap, an extra part is added for headroom since stream copy cuts
// on keyframes and parts land slightly over the arithmetic average.
func splitPlan(totalSize, maxPart int64) int {
	if totalSize <= maxPart {
		return 1
	}
	parts := int((totalSize + maxPart - 1) / maxPart)
	if totalSize/int64(parts) > maxPart*9/10 {
		parts++
	}
	return parts
}

// SplitBySize cuts a video into parts no larger than maxPart bytes using
// stream copy. It returns the part paths in order. A file already under the
// cap is returned as-is.
func (t Toolset) SplitBySize(ctx context.Context, inputPath string, maxPart int64) ([]string, error) {
	stat, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("error inspecting video file: %v", err)
	}
	if stat.Size() <= maxPart {
		return []string{inputPath}, nil
	}
	duration, err := t.ProbeDuration(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	parts := splitPlan(stat.Size(), maxPart)
	for attempt := 0; attempt < splitRetryLimit; attempt++ {
		paths, oversize, err := t.splitIntoParts(ctx, inputPath, duration, parts, maxPart)
		if err != nil {
			removeAll(paths)
			return nil, err
		}
		if !oversize {
			return paths, nil
		}
		// A keyframe-aligned cut overshot the cap, redo with one more part.
		removeAll(paths)
		parts++
		log.Debug().Str("op", "ffmpeg/split").Msgf("Part exceeded size cap, retrying with %d parts", parts)
	}
	return nil, fmt.Errorf("error splitting video: parts still exceed %d bytes after %d attempts", maxPart, splitRetryLimit)
}

func (t Toolset) splitIntoParts(ctx context.Context, inputPath string, duration float64, parts int, maxPart int64) ([]string, bool, error) {
	partDuration := duration / float64(parts)
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	paths := make([]string, 0, parts)
	oversize := false
	for i := 0; i < parts; i++ {
		outPath := fmt.Sprintf("%s.part%d%s", base, i+1, ext)
		args := []string{
			"-y",
			"-ss", fmt.Sprintf("%.2f", partDuration*float64(i)),
			"-i", inputPath,
			"-t", fmt.Sprintf("%.2f", partDuration),
			"-c", "copy",
			"-loglevel", "error",
			outPath,
		}
		cmd := exec.CommandContext(ctx, t.ffmpeg(), args...)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return paths, false, fmt.Errorf("ffmpeg error: %v\nOutput: %s", err, string(output))
		}
		paths = append(paths, outPath)
		if stat, err := os.Stat(outPath); err == nil && stat.Size() > maxPart {
			oversize = true
		}
	}
	return paths, oversize, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
