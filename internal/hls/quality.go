package hls

import (
	"errors"
	"strings"
)

var ErrNoVariants = errors.New("no variants in master playlist")

// Quality is the coarse rendition preference a user picks.
type Quality int

const (
	QualityLowest Quality = iota
	QualityMedium
	QualityHigh
)

// ParseQuality maps user input onto the closed quality set. Anything
// unrecognized resolves to medium.
func ParseQuality(s string) Quality {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lowest", "low":
		return QualityLowest
	case "high", "highest", "best":
		return QualityHigh
	default:
		return QualityMedium
	}
}

func (q Quality) String() string {
	switch q {
	case QualityLowest:
		return "lowest"
	case QualityHigh:
		return "high"
	default:
		return "medium"
	}
}

// SelectVariant picks a rendition from a master playlist. Variants are
// ordered ascending by bandwidth; lowest selects index 0, high the last
// index, medium the midpoint. With a single variant the quality is moot.
func SelectVariant(master *MasterPlaylist, quality Quality) (Variant, error) {
	sorted := master.SortedByBandwidth()
	if len(sorted) == 0 {
		return Variant{}, ErrNoVariants
	}
	var index int
	switch quality {
	case QualityLowest:
		index = 0
	case QualityHigh:
		index = len(sorted) - 1
	default:
		index = len(sorted) / 2
	}
	return sorted[index], nil
}
