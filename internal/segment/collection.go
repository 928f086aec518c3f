package segment

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrEmptyInterval = errors.New("segment end must be after start")
	ErrUnordered     = errors.New("segments must be sorted by start time")
	ErrOverlap       = errors.New("segments must not overlap")
)

// Validate checks the collection invariants: positive-length intervals,
// ascending start times, and no overlap between neighbours.
func Validate(segments []Segment) error {
	for i, seg := range segments {
		if !(seg.EndSeconds > seg.StartSeconds) {
			return fmt.Errorf("segment %d (%.3f-%.3f): %w", i, seg.StartSeconds, seg.EndSeconds, ErrEmptyInterval)
		}
		if i == 0 {
			continue
		}
		prev := segments[i-1]
		if seg.StartSeconds < prev.StartSeconds {
			return fmt.Errorf("segment %d starts at %.3f before %.3f: %w", i, seg.StartSeconds, prev.StartSeconds, ErrUnordered)
		}
		if seg.StartSeconds < prev.EndSeconds {
			return fmt.Errorf("segment %d starts at %.3f before previous end %.3f: %w", i, seg.StartSeconds, prev.EndSeconds, ErrOverlap)
		}
	}
	return nil
}

// SortByStart orders segments ascending by start time, keeping the relative
// order of equal starts.
func SortByStart(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSeconds < segments[j].StartSeconds
	})
}

// Counts tallies segments by lifecycle state.
func Counts(segments []Segment) map[State]int {
	counts := make(map[State]int, 4)
	for _, seg := range segments {
		counts[seg.State()]++
	}
	return counts
}

// Transcribed returns the segments that carry non-empty text, in order.
func Transcribed(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Text() != "" {
			out = append(out, seg)
		}
	}
	return out
}
