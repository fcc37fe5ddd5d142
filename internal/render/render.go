// Package render drives ffmpeg to produce the final clip file from a
// validated range: sub-range extraction, aspect-ratio reformatting and
// optional subtitle burn-in.
package render

import (
	"fmt"

	"github.com/clipdex/clipdex-agent/internal/cliprange"
)

// AspectRatio selects the output geometry.
type AspectRatio string

const (
	// Wide scales to 1920x1080.
	Wide AspectRatio = "wide"
	// Tall center-crops to 9:16 and scales to 1080x1920.
	Tall AspectRatio = "tall"
)

// Quality selects the encoding speed/size trade-off.
type Quality string

const (
	Fast   Quality = "fast"
	Medium Quality = "medium"
	High   Quality = "high"
)

// encodeParams is the single source of truth for output encoding
// characteristics per quality level.
type encodeParams struct {
	Preset string
	CRF    string
}

var qualityTable = map[Quality]encodeParams{
	Fast:   {Preset: "veryfast", CRF: "28"},
	Medium: {Preset: "medium", CRF: "23"},
	High:   {Preset: "slow", CRF: "18"},
}

// ValidAspectRatio reports whether s names a known aspect ratio.
func ValidAspectRatio(s string) bool {
	return AspectRatio(s) == Wide || AspectRatio(s) == Tall
}

// ValidQuality reports whether s names a known quality level.
func ValidQuality(s string) bool {
	_, ok := qualityTable[Quality(s)]
	return ok
}

// Options are the caller-selected format choices for one render.
type Options struct {
	AspectRatio AspectRatio
	Subtitles   bool
	Quality     Quality
}

// Clip is the in-memory descriptor of a rendered clip. Ownership passes to
// the caller on return; the pipeline keeps no reference.
type Clip struct {
	Path        string
	Range       cliprange.ValidatedRange
	Duration    float64
	AspectRatio AspectRatio
}

// RenderError is the terminal media-processing failure. Rendering is
// deterministic and expensive, so it is never retried automatically.
type RenderError struct {
	Reason     string
	ExitCode   int
	StderrTail string
}

func (e *RenderError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("render failed: %s (exit %d): %s", e.Reason, e.ExitCode, e.StderrTail)
	}
	return fmt.Sprintf("render failed: %s", e.Reason)
}
