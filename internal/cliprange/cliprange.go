// Package cliprange promotes untrusted candidate ranges to validated
// clip ranges. ValidatedRange can only be constructed through Validate,
// so every consumer sees an in-bounds, minimum-length, non-inverted
// interval.
package cliprange

import (
	"errors"
	"fmt"

	"github.com/clipdex/clipdex-agent/internal/resolve"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

// ErrInvertedRange means the candidate ended at or before its start.
var ErrInvertedRange = errors.New("candidate range is inverted or empty")

// ClipTooShortError reports a clamped range below the minimum clip length.
// The caller may retry resolution with a refined prompt; the validator
// itself never retries.
type ClipTooShortError struct {
	Length float64
	Min    float64
}

func (e *ClipTooShortError) Error() string {
	return fmt.Sprintf("resolved range shorter than %.0fs after clamping (%.1fs)", e.Min, e.Length)
}

// Options are the tunable validation bounds, sourced from configuration.
type Options struct {
	MinClipSeconds float64
	MaxClipSeconds float64
	SnapTolerance  float64
}

// DefaultOptions matches the documented policy: 5s-120s clips with a
// one-second boundary-snap tolerance.
func DefaultOptions() Options {
	return Options{
		MinClipSeconds: 5,
		MaxClipSeconds: 120,
		SnapTolerance:  1.0,
	}
}

// ValidatedRange is an interval guaranteed to satisfy
// 0 <= start < end <= duration and min <= end-start <= max.
// The zero value is invalid; only Validate produces instances.
type ValidatedRange struct {
	start float64
	end   float64
}

func (r ValidatedRange) Start() float64 { return r.start }

func (r ValidatedRange) End() float64 { return r.end }

func (r ValidatedRange) Duration() float64 { return r.end - r.start }

func (r ValidatedRange) String() string {
	return fmt.Sprintf("[%.1fs - %.1fs]", r.start, r.end)
}

// Validate applies the range policy in order: reject inverted candidates,
// clamp to the transcript bounds, fail below the minimum length, truncate
// above the maximum, and snap endpoints to nearby segment boundaries.
func Validate(c resolve.CandidateRange, ix *transcript.Index, opts Options) (ValidatedRange, error) {
	if c.End <= c.Start {
		return ValidatedRange{}, fmt.Errorf("%w: start=%.1f end=%.1f", ErrInvertedRange, c.Start, c.End)
	}

	duration := ix.Duration()

	start := c.Start
	if start < 0 {
		start = 0
	}
	end := c.End
	if end > duration {
		end = duration
	}

	if end-start < opts.MinClipSeconds {
		return ValidatedRange{}, &ClipTooShortError{Length: end - start, Min: opts.MinClipSeconds}
	}

	// Prefer a shorter deliverable clip over failing on overlong ranges.
	if end-start > opts.MaxClipSeconds {
		end = start + opts.MaxClipSeconds
	}

	// Snap endpoints onto segment boundaries to avoid cutting
	// mid-sentence, but never at the cost of the invariants above.
	start, end = snap(start, end, ix, opts)

	return ValidatedRange{start: start, end: end}, nil
}

func snap(start, end float64, ix *transcript.Index, opts Options) (float64, float64) {
	if opts.SnapTolerance <= 0 {
		return start, end
	}

	if b, d := ix.NearestBoundary(start); d <= opts.SnapTolerance {
		if keeps(b, end, ix.Duration(), opts) {
			start = b
		}
	}
	if b, d := ix.NearestBoundary(end); d <= opts.SnapTolerance {
		if keeps(start, b, ix.Duration(), opts) {
			end = b
		}
	}
	return start, end
}

// keeps reports whether [start, end] still satisfies every invariant.
func keeps(start, end, duration float64, opts Options) bool {
	return start >= 0 && end <= duration &&
		end-start >= opts.MinClipSeconds &&
		end-start <= opts.MaxClipSeconds
}
