// Package transcript holds the immutable in-memory representation of a
// timestamped transcript: ordered, non-overlapping segments covering the
// source media from zero to its duration.
package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOutOfRange is returned when a lookup interval falls outside the
// transcript's [0, Duration()] bounds.
var ErrOutOfRange = errors.New("interval outside transcript bounds")

// Segment is a single timestamped unit of transcript text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Index is a read-only view over a transcript's segments. Once built it is
// never mutated, so concurrent readers need no synchronisation.
type Index struct {
	segments []Segment
	duration float64
}

// New validates and indexes a transcript. Segments must satisfy
// 0 <= start < end, be ordered by start and not overlap.
func New(segments []Segment) (*Index, error) {
	if len(segments) == 0 {
		return nil, errors.New("transcript has no segments")
	}

	segs := make([]Segment, len(segments))
	copy(segs, segments)

	prev := 0.0
	for i, s := range segs {
		if s.Start < 0 {
			return nil, fmt.Errorf("segment %d: negative start %.3f", i, s.Start)
		}
		if s.End <= s.Start {
			return nil, fmt.Errorf("segment %d: end %.3f not after start %.3f", i, s.End, s.Start)
		}
		if s.Start < prev {
			return nil, fmt.Errorf("segment %d: starts at %.3f before previous end %.3f", i, s.Start, prev)
		}
		prev = s.End
	}

	return &Index{
		segments: segs,
		duration: segs[len(segs)-1].End,
	}, nil
}

// Duration returns the end time of the final segment, which matches the
// source media duration within transcription rounding.
func (ix *Index) Duration() float64 {
	return ix.duration
}

// Segments returns a copy of the indexed segments.
func (ix *Index) Segments() []Segment {
	out := make([]Segment, len(ix.segments))
	copy(out, ix.segments)
	return out
}

// FullText joins all segment texts with single spaces.
func (ix *Index) FullText() string {
	parts := make([]string, 0, len(ix.segments))
	for _, s := range ix.segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// LookupOverlap returns, in order, the segments whose intervals intersect
// [start, end). Both bounds must lie within [0, Duration()].
func (ix *Index) LookupOverlap(start, end float64) ([]Segment, error) {
	if start < 0 || end < 0 || start > ix.duration || end > ix.duration {
		return nil, fmt.Errorf("%w: [%.3f, %.3f) against duration %.3f",
			ErrOutOfRange, start, end, ix.duration)
	}
	if end <= start {
		return nil, nil
	}

	// First segment whose end is past the interval start.
	lo := sort.Search(len(ix.segments), func(i int) bool {
		return ix.segments[i].End > start
	})

	var out []Segment
	for i := lo; i < len(ix.segments); i++ {
		if ix.segments[i].Start >= end {
			break
		}
		out = append(out, ix.segments[i])
	}
	return out, nil
}

// TextInRange joins the texts of segments overlapping [start, end).
// It returns "" when the interval is empty or out of bounds.
func (ix *Index) TextInRange(start, end float64) string {
	segs, err := ix.LookupOverlap(start, end)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// NearestBoundary returns the segment boundary (any start or end) closest
// to t and its distance. The boundary set is never empty for a valid index.
func (ix *Index) NearestBoundary(t float64) (float64, float64) {
	best := ix.segments[0].Start
	bestDist := abs(t - best)
	for _, s := range ix.segments {
		for _, b := range [2]float64{s.Start, s.End} {
			if d := abs(t - b); d < bestDist {
				best, bestDist = b, d
			}
		}
	}
	return best, bestDist
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
