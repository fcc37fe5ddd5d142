// Package resolve maps a free-text clip description onto a candidate time
// range inside a transcript by delegating to an OpenAI-compatible
// chat-completion collaborator.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

var (
	// ErrUnparsableResponse means the collaborator replied but not in the
	// expected {"start","end"} shape.
	ErrUnparsableResponse = errors.New("collaborator response not in expected shape")

	// ErrResolutionFailed is the terminal resolver failure, surfaced after
	// the strict re-prompt also fails to produce a usable range.
	ErrResolutionFailed = errors.New("timestamp resolution failed")
)

// CandidateRange is the resolver's untrusted output. It may be inverted,
// out of bounds or degenerate; only the range validator may promote it.
type CandidateRange struct {
	Start      float64
	End        float64
	Confidence *float64
}

// Resolver maps a transcript plus description to a candidate range.
type Resolver interface {
	Resolve(ctx context.Context, ix *transcript.Index, description string) (CandidateRange, error)
}

// CollaboratorError reports a failed call to the language-model API.
// Network errors and 5xx responses are retryable; 4xx are permanent.
type CollaboratorError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("language-model request failed: %v", e.Err)
	}
	return fmt.Sprintf("language-model request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true for network errors and server errors (5xx).
func (e *CollaboratorError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}
