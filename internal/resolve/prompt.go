package resolve

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const systemPrompt = "You are an expert at analyzing video transcriptions " +
	"and identifying specific content segments. You reply with precise " +
	"timestamp ranges for requested clips, as JSON only."

const strictReprompt = "Your previous reply could not be parsed. Reply with " +
	"ONLY a JSON object of the exact form {\"start\": <seconds>, \"end\": <seconds>} " +
	"and nothing else. No prose, no code fences."

func buildPrompt(context, description string, minSeconds, maxSeconds float64) string {
	var b strings.Builder
	b.WriteString("Analyze the following video transcription and find the segment described by the user.\n\n")
	b.WriteString("TRANSCRIPTION:\n")
	b.WriteString(context)
	b.WriteString("\n\nUSER REQUEST: ")
	b.WriteString(strconvQuote(description))
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString("1. Find the section of the transcription that best matches the request.\n")
	b.WriteString("2. Choose clear start and end points for a coherent clip with a natural beginning and ending.\n")
	fmt.Fprintf(&b, "3. Aim for a clip between %.0f and %.0f seconds when possible.\n", minSeconds, maxSeconds)
	b.WriteString("4. Reply with a single JSON object and nothing else:\n")
	b.WriteString("{\"start\": <seconds as number>, \"end\": <seconds as number>, \"confidence\": <0..1, optional>}\n")
	return b.String()
}

func strconvQuote(s string) string {
	// json.Marshal of a string never fails
	b, _ := json.Marshal(s)
	return string(b)
}

// rangePayload is the single parse-and-validate boundary for the
// collaborator's untyped JSON.
type rangePayload struct {
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Confidence *float64 `json:"confidence"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseRange extracts a CandidateRange from the model's reply. It tolerates
// surrounding prose or code fences by locating the outermost JSON object,
// but requires both numeric fields to be present.
func parseRange(content string) (CandidateRange, error) {
	match := jsonObjectPattern.FindString(content)
	if match == "" {
		return CandidateRange{}, fmt.Errorf("%w: no JSON object in reply", ErrUnparsableResponse)
	}

	var p rangePayload
	if err := json.Unmarshal([]byte(match), &p); err != nil {
		return CandidateRange{}, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}
	if p.Start == nil || p.End == nil {
		return CandidateRange{}, fmt.Errorf("%w: missing start or end field", ErrUnparsableResponse)
	}

	return CandidateRange{Start: *p.Start, End: *p.End, Confidence: p.Confidence}, nil
}
