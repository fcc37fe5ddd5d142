package transcript

import (
	"fmt"
	"strings"
)

// PromptContext renders the transcript as timestamped lines suitable for a
// language-model prompt, e.g. "[12.3s - 15.0s] and that's why the Fed...".
// When the rendered text exceeds maxBytes, segments are sampled from the
// beginning, middle and end with elision markers so the result stays within
// budget while preserving temporal spread.
func (ix *Index) PromptContext(maxBytes int) string {
	lines := make([]string, len(ix.segments))
	total := 0
	for i, s := range ix.segments {
		lines[i] = fmt.Sprintf("[%.1fs - %.1fs] %s", s.Start, s.End, strings.TrimSpace(s.Text))
		total += len(lines[i]) + 1
	}

	if maxBytes <= 0 || total <= maxBytes {
		return strings.Join(lines, "\n")
	}

	// Budget one third each to head, middle and tail.
	third := maxBytes / 3

	head := takeLines(lines, third, false)
	tail := takeLines(lines, third, true)

	midStart := len(lines) / 2
	var mid []string
	used := 0
	for i := midStart; i < len(lines) && used+len(lines[i])+1 <= third; i++ {
		mid = append(mid, lines[i])
		used += len(lines[i]) + 1
	}

	parts := []string{
		strings.Join(head, "\n"),
		"[...]",
		strings.Join(mid, "\n"),
		"[...]",
		strings.Join(tail, "\n"),
	}
	return strings.Join(parts, "\n")
}

// takeLines collects whole lines up to budget bytes, from the front or
// (preserving order) from the back.
func takeLines(lines []string, budget int, fromEnd bool) []string {
	var out []string
	used := 0
	if fromEnd {
		for i := len(lines) - 1; i >= 0 && used+len(lines[i])+1 <= budget; i-- {
			out = append([]string{lines[i]}, out...)
			used += len(lines[i]) + 1
		}
		return out
	}
	for i := 0; i < len(lines) && used+len(lines[i])+1 <= budget; i++ {
		out = append(out, lines[i])
		used += len(lines[i]) + 1
	}
	return out
}
