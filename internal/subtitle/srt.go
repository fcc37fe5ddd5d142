// Package subtitle generates SRT cue lists from transcript segments.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

// Cue is a single subtitle block with times relative to the clip.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// CuesFromSegments converts the transcript segments overlapping a clip into
// cues rebased to the clip's own zero point. Segments extending past the
// clip edges are trimmed to fit.
func CuesFromSegments(segs []transcript.Segment, clipStart, clipEnd float64) []Cue {
	var cues []Cue
	for _, s := range segs {
		start := s.Start
		if start < clipStart {
			start = clipStart
		}
		end := s.End
		if end > clipEnd {
			end = clipEnd
		}
		if end <= start {
			continue
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{
			Start: start - clipStart,
			End:   end - clipStart,
			Text:  text,
		})
	}
	return cues
}

// FormatSRT renders cues as an SRT document.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, Timestamp(c.Start), Timestamp(c.End), c.Text)
	}
	return b.String()
}

// Timestamp formats seconds as an SRT timestamp, e.g. 00:01:02,500.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
