package subtitle

import (
	"strings"
	"testing"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

func TestTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{62.25, "00:01:02,250"},
		{3723.042, "01:02:03,042"},
		{-3, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := Timestamp(tc.seconds); got != tc.want {
			t.Errorf("Timestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestCuesFromSegments_RebasesToClipZero(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 40, End: 48, Text: "the fed held rates"},
		{Start: 48, End: 55, Text: "markets cheered"},
	}

	cues := CuesFromSegments(segs, 40, 55)
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 8 {
		t.Errorf("cue 0 = [%v, %v], want [0, 8]", cues[0].Start, cues[0].End)
	}
	if cues[1].Start != 8 || cues[1].End != 15 {
		t.Errorf("cue 1 = [%v, %v], want [8, 15]", cues[1].Start, cues[1].End)
	}
}

func TestCuesFromSegments_TrimsOverhang(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 35, End: 45, Text: "leading overhang"},
		{Start: 45, End: 58, Text: "trailing overhang"},
	}

	cues := CuesFromSegments(segs, 40, 50)
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 5 {
		t.Errorf("cue 0 = [%v, %v], want [0, 5]", cues[0].Start, cues[0].End)
	}
	if cues[1].Start != 5 || cues[1].End != 10 {
		t.Errorf("cue 1 = [%v, %v], want [5, 10]", cues[1].Start, cues[1].End)
	}
}

func TestCuesFromSegments_SkipsEmptyText(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 0, End: 5, Text: "   "},
		{Start: 5, End: 10, Text: "spoken"},
	}
	cues := CuesFromSegments(segs, 0, 10)
	if len(cues) != 1 || cues[0].Text != "spoken" {
		t.Fatalf("cues = %+v, want single spoken cue", cues)
	}
}

func TestFormatSRT(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 2.5, Text: "hello"},
		{Start: 2.5, End: 6, Text: "world"},
	}

	srt := FormatSRT(cues)

	want := "1\n00:00:00,000 --> 00:00:02,500\nhello\n\n" +
		"2\n00:00:02,500 --> 00:00:06,000\nworld\n\n"
	if srt != want {
		t.Errorf("FormatSRT =\n%q\nwant\n%q", srt, want)
	}
	if !strings.HasSuffix(srt, "\n\n") {
		t.Error("SRT blocks must be blank-line terminated")
	}
}
