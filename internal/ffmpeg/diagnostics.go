package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ffmpeg's stderr format varies across versions; the recognized patterns are
// kept separate from the executor's control flow so they can evolve on their
// own.
var (
	sizePattern    = regexp.MustCompile(`size=\s*(\d+)\s*([kKmMgG])?i?B`)
	bytesPattern   = regexp.MustCompile(`\bbytes=(\d+)\b`)
	timePattern    = regexp.MustCompile(`\btime=(\d+):(\d{2}):(\d{2})\.(\d{2})`)
	openingPattern = regexp.MustCompile(`Opening '([^']+)' for reading`)
)

// parseSizeLine extracts a cumulative byte count from a diagnostic line.
func parseSizeLine(line string) (int64, bool) {
	if m := sizePattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "k", "K":
			n *= 1024
		case "m", "M":
			n *= 1024 * 1024
		case "g", "G":
			n *= 1024 * 1024 * 1024
		}
		return n, true
	}
	if m := bytesPattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// parseClockTime extracts the encoded playback position from a diagnostic
// line.
func parseClockTime(line string) (time.Duration, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	cs, _ := strconv.Atoi(m[4])
	return time.Duration(h)*time.Hour +
		time.Duration(min)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(cs)*10*time.Millisecond, true
}

// progressMonitor turns cumulative readings into non-negative deltas. Byte
// counters are authoritative; the clock-time estimate only kicks in when
// byte signals have stayed sparse for a while.
type progressMonitor struct {
	lastCumulative int64
	estimatedSize  int64
	segmentBytes   int64
	totalDuration  time.Duration
	counterSeen    bool
	started        time.Time
	now            func() time.Time
}

const (
	timeHeuristicDelay    = 10 * time.Second
	timeHeuristicFraction = 10 // engage below 1/10th of the estimate
)

func newProgressMonitor(estimatedSize int64, totalDuration time.Duration) *progressMonitor {
	m := &progressMonitor{
		estimatedSize: estimatedSize,
		totalDuration: totalDuration,
		now:           time.Now,
	}
	m.started = m.now()
	return m
}

// Observe parses one diagnostic line and returns the byte delta to forward,
// or 0. Non-increasing readings are dropped so the forwarded counter never
// goes backwards.
func (m *progressMonitor) Observe(line string) int64 {
	if cumulative, ok := parseSizeLine(line); ok {
		m.counterSeen = true
		return m.advance(cumulative)
	}
	if !m.timeHeuristicReady() {
		return 0
	}
	if pos, ok := parseClockTime(line); ok {
		estimated := int64(float64(m.estimatedSize) * (float64(pos) / float64(m.totalDuration)))
		return m.advance(estimated)
	}
	return 0
}

// ObserveSegment reports whether the line is a media segment being opened.
// Segment opens stand in for byte counters only until the first real
// counter appears; each counted open raises the cumulative floor so a late
// counter does not replay bytes the segment estimate already covered.
func (m *progressMonitor) ObserveSegment(line string) bool {
	if m.counterSeen || m.segmentBytes <= 0 {
		return false
	}
	match := openingPattern.FindStringSubmatch(line)
	if match == nil || strings.HasSuffix(match[1], ".m3u8") {
		return false
	}
	m.lastCumulative += m.segmentBytes
	return true
}

func (m *progressMonitor) advance(cumulative int64) int64 {
	if cumulative <= m.lastCumulative {
		return 0
	}
	delta := cumulative - m.lastCumulative
	m.lastCumulative = cumulative
	return delta
}

func (m *progressMonitor) timeHeuristicReady() bool {
	if m.estimatedSize <= 0 || m.totalDuration <= 0 {
		return false
	}
	if m.now().Sub(m.started) < timeHeuristicDelay {
		return false
	}
	return m.lastCumulative < m.estimatedSize/timeHeuristicFraction
}
