package hls

import (
	"context"

	"github.com/rs/zerolog/log"
)

type EstimateMethod string

const (
	MethodExact    EstimateMethod = "byte-range-sum"
	MethodSampled  EstimateMethod = "sampled-average"
	MethodFallback EstimateMethod = "fixed-fallback"
)

// SizeEstimate is the expected total payload of a media playlist plus the
// strategy that produced it.
type SizeEstimate struct {
	TotalBytes int64
	Method     EstimateMethod
}

// SegmentProber reports the byte length of a single segment without
// transferring it, typically via a HEAD request.
type SegmentProber interface {
	ProbeSize(ctx context.Context, segmentURI string) (int64, error)
}

func sampleCount(q Quality) int {
	switch q {
	case QualityLowest:
		return 3
	case QualityHigh:
		return 8
	default:
		return 5
	}
}

func fallbackSegmentBytes(q Quality) int64 {
	switch q {
	case QualityLowest:
		return 512 * 1024
	case QualityHigh:
		return 2 * 1024 * 1024
	default:
		return 1024 * 1024
	}
}

// Estimate derives the expected payload size of a media playlist. Strategies
// in priority order: exact byte-range sum, sampled HEAD probes, fixed
// per-segment fallback. Probe failures degrade the estimate silently; they
// never fail the caller.
func Estimate(ctx context.Context, media *MediaPlaylist, prober SegmentProber, quality Quality) SizeEstimate {
	total := len(media.Segments)
	if total == 0 {
		return SizeEstimate{TotalBytes: 0, Method: MethodExact}
	}

	if sum, ok := byteRangeSum(media); ok {
		return SizeEstimate{TotalBytes: sum, Method: MethodExact}
	}

	if prober != nil {
		if est, ok := sampledEstimate(ctx, media, prober, quality); ok {
			return SizeEstimate{TotalBytes: est, Method: MethodSampled}
		}
	}

	return SizeEstimate{
		TotalBytes: int64(total) * fallbackSegmentBytes(quality),
		Method:     MethodFallback,
	}
}

func byteRangeSum(media *MediaPlaylist) (int64, bool) {
	var sum int64
	for _, seg := range media.Segments {
		if seg.Range == nil || seg.Range.Length <= 0 {
			return 0, false
		}
		sum += seg.Range.Length
	}
	return sum, true
}

func sampledEstimate(ctx context.Context, media *MediaPlaylist, prober SegmentProber, quality Quality) (int64, bool) {
	total := len(media.Segments)
	indices := sampleIndices(total, sampleCount(quality))
	var probed int64
	var successes int64
	for _, idx := range indices {
		size, err := prober.ProbeSize(ctx, media.Segments[idx].URI)
		if err != nil || size <= 0 {
			log.Debug().Str("op", "hls/estimate").Int("segment", idx).Err(err).Msg("Segment probe failed, skipping sample")
			continue
		}
		probed += size
		successes++
	}
	if successes == 0 {
		return 0, false
	}
	avg := probed / successes
	return avg * int64(total), true
}

// sampleIndices spreads n sample positions evenly across total segments,
// deduplicated and clamped to the last index.
func sampleIndices(total, n int) []int {
	if n > total {
		n = total
	}
	indices := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		idx := i * total / n
		if idx >= total {
			idx = total - 1
		}
		if !seen[idx] {
			seen[idx] = true
			indices = append(indices, idx)
		}
	}
	return indices
}

// ApplyQualityMargin pads an estimate to compensate for systematic
// undercount at higher tiers. Kept apart from Estimate so raw and adjusted
// totals stay independently observable.
func ApplyQualityMargin(total int64, quality Quality) int64 {
	switch quality {
	case QualityMedium:
		return total * 12 / 10
	case QualityHigh:
		return total * 15 / 10
	default:
		return total
	}
}
