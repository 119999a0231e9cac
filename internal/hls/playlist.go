package hls

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ManifestError marks a playlist that could not be parsed. It is distinct
// from a playlist that parses to zero entries.
type ManifestError struct {
	Reason string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid manifest: %s", e.Reason)
}

type Variant struct {
	URI       string
	Bandwidth int
}

// MasterPlaylist is the immutable variant-level view of a manifest.
type MasterPlaylist struct {
	Variants []Variant
}

type ByteRange struct {
	Offset int64
	Length int64
}

type Segment struct {
	URI      string
	Duration float64
	Range    *ByteRange
}

// MediaPlaylist is the segment-level view of a manifest. Zero segments is a
// valid, empty playlist.
type MediaPlaylist struct {
	Segments []Segment
}

func (m *MediaPlaylist) SegmentCount() int {
	return len(m.Segments)
}

// TotalDuration sums the advertised segment durations.
func (m *MediaPlaylist) TotalDuration() time.Duration {
	var total float64
	for _, seg := range m.Segments {
		total += seg.Duration
	}
	return time.Duration(total * float64(time.Second))
}

// ParseMaster parses a master playlist into its variant list. A manifest
// without any #EXT-X-STREAM-INF entries is not a master playlist and fails.
func ParseMaster(content string) (*MasterPlaylist, error) {
	if !strings.Contains(content, "#EXTM3U") {
		return nil, &ManifestError{Reason: "missing #EXTM3U header"}
	}
	var variants []Variant
	pendingBandwidth := -1
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			bw, err := parseBandwidth(line)
			if err != nil {
				return nil, &ManifestError{Reason: err.Error()}
			}
			pendingBandwidth = bw
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pendingBandwidth >= 0 {
			variants = append(variants, Variant{URI: line, Bandwidth: pendingBandwidth})
			pendingBandwidth = -1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ManifestError{Reason: fmt.Sprintf("error scanning manifest: %v", err)}
	}
	if len(variants) == 0 {
		return nil, &ManifestError{Reason: "not a master playlist (no #EXT-X-STREAM-INF entries)"}
	}
	return &MasterPlaylist{Variants: variants}, nil
}

func parseBandwidth(line string) (int, error) {
	attrs := strings.TrimPrefix(line, "#EXT-X-STREAM-INF:")
	for _, attr := range splitAttributes(attrs) {
		if strings.HasPrefix(attr, "BANDWIDTH=") {
			bw, err := strconv.Atoi(strings.TrimPrefix(attr, "BANDWIDTH="))
			if err != nil {
				return 0, fmt.Errorf("malformed BANDWIDTH attribute: %q", attr)
			}
			return bw, nil
		}
	}
	return 0, fmt.Errorf("missing BANDWIDTH attribute: %q", line)
}

// splitAttributes splits an attribute list on commas outside quoted values.
func splitAttributes(s string) []string {
	var parts []string
	var sb strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}

// ParseMedia parses a media playlist into its segment list, carrying explicit
// byte ranges when present. A range without an offset continues from the end
// of the previous one.
func ParseMedia(content string) (*MediaPlaylist, error) {
	if !strings.Contains(content, "#EXTM3U") {
		return nil, &ManifestError{Reason: "missing #EXTM3U header"}
	}
	var segments []Segment
	var pendingRange *ByteRange
	var pendingDuration float64
	var nextOffset int64
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			spec := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(spec, ","); idx >= 0 {
				spec = spec[:idx]
			}
			if d, err := strconv.ParseFloat(spec, 64); err == nil {
				pendingDuration = d
			}
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-BYTERANGE:") {
			r, err := parseByteRange(strings.TrimPrefix(line, "#EXT-X-BYTERANGE:"), nextOffset)
			if err != nil {
				return nil, &ManifestError{Reason: err.Error()}
			}
			pendingRange = r
			nextOffset = r.Offset + r.Length
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		segments = append(segments, Segment{URI: line, Duration: pendingDuration, Range: pendingRange})
		pendingRange = nil
		pendingDuration = 0
	}
	if err := scanner.Err(); err != nil {
		return nil, &ManifestError{Reason: fmt.Sprintf("error scanning manifest: %v", err)}
	}
	return &MediaPlaylist{Segments: segments}, nil
}

func parseByteRange(spec string, defaultOffset int64) (*ByteRange, error) {
	parts := strings.SplitN(spec, "@", 2)
	length, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed byte range %q", spec)
	}
	offset := defaultOffset
	if len(parts) == 2 {
		offset, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed byte range offset %q", spec)
		}
	}
	return &ByteRange{Offset: offset, Length: length}, nil
}

// SortedByBandwidth returns the variants sorted ascending by bandwidth.
// The sort is stable so manifest order breaks ties.
func (m *MasterPlaylist) SortedByBandwidth() []Variant {
	sorted := make([]Variant, len(m.Variants))
	copy(sorted, m.Variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bandwidth < sorted[j].Bandwidth
	})
	return sorted
}
