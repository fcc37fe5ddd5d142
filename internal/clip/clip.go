package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipdex/clipdex-agent/internal/cliprange"
	"github.com/clipdex/clipdex-agent/internal/render"
	"github.com/clipdex/clipdex-agent/internal/resolve"
	"github.com/clipdex/clipdex-agent/internal/topic"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

// MaxResolutionAttempts bounds how many times the pipeline will go back
// to the resolver for a fresh range before giving up.
const MaxResolutionAttempts = 2

// Stage names the pipeline step that produced a failure.
type Stage string

const (
	StageResolution     Stage = "resolution"
	StageValidation     Stage = "validation"
	StageClassification Stage = "classification"
	StageRender         Stage = "render"
)

// ExtractionError wraps the final cause after the pipeline has exhausted
// its options. Unwrap exposes the last underlying failure.
type ExtractionError struct {
	Stage    Stage
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("clip extraction failed at %s after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Result is the output of a successful extraction.
type Result struct {
	Clip     *render.Clip
	Range    cliprange.ValidatedRange
	Topic    topic.Topic
	Attempts int
}

// Extractor runs the resolve -> validate -> classify -> render pipeline
// for a single clip request.
type Extractor struct {
	resolver       resolve.Resolver
	renderer       render.Renderer
	opts           cliprange.Options
	resolveTimeout time.Duration
	logger         *slog.Logger
}

// NewExtractor wires a pipeline from its collaborators. A zero
// resolveTimeout disables the per-attempt resolution deadline.
func NewExtractor(resolver resolve.Resolver, renderer render.Renderer, opts cliprange.Options, resolveTimeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		resolver:       resolver,
		renderer:       renderer,
		opts:           opts,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

// Extract runs the full pipeline against one transcript. Resolution and
// validation failures that a better range could fix (unparsable output,
// too-short ranges, resolver timeouts) trigger a bounded re-resolution
// with a hint describing what went wrong. Render failures and
// collaborator transport failures are terminal on first occurrence.
func (e *Extractor) Extract(ctx context.Context, ix *transcript.Index, sourcePath string, req Request) (*Result, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	var (
		lastErr   error
		lastStage Stage
		hint      string
	)

	for attempt := 1; attempt <= MaxResolutionAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		description := req.Description
		if hint != "" {
			description = fmt.Sprintf("%s\n(A previous attempt failed: %s. Pick a longer, unambiguous section that fully covers the topic.)", req.Description, hint)
		}

		rng, err := e.resolveAndValidate(ctx, ix, description)
		if err != nil {
			stage, retryable, reason := classifyFailure(err)
			lastErr, lastStage = err, stage
			if !retryable {
				return nil, &ExtractionError{Stage: stage, Attempts: attempt, Err: err}
			}
			hint = reason
			e.logger.Warn("clip attempt failed, retrying resolution",
				"attempt", attempt, "stage", string(stage), "reason", reason)
			continue
		}

		t := e.classify(ix, rng, req.Description)

		clip, err := e.render(ctx, sourcePath, ix, rng, req)
		if err != nil {
			return nil, &ExtractionError{Stage: StageRender, Attempts: attempt, Err: err}
		}

		e.logger.Info("clip extracted",
			"range", rng.String(), "topic", string(t), "output", clip.Path, "attempts", attempt)
		return &Result{Clip: clip, Range: rng, Topic: t, Attempts: attempt}, nil
	}

	return nil, &ExtractionError{Stage: lastStage, Attempts: MaxResolutionAttempts, Err: lastErr}
}

func (e *Extractor) resolveAndValidate(ctx context.Context, ix *transcript.Index, description string) (cliprange.ValidatedRange, error) {
	resolveCtx := ctx
	if e.resolveTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, e.resolveTimeout)
		defer cancel()
	}

	candidate, err := e.resolver.Resolve(resolveCtx, ix, description)
	if err != nil {
		return cliprange.ValidatedRange{}, fmt.Errorf("resolve range: %w", err)
	}

	rng, err := cliprange.Validate(candidate, ix, e.opts)
	if err != nil {
		return cliprange.ValidatedRange{}, fmt.Errorf("validate range [%.1fs - %.1fs]: %w", candidate.Start, candidate.End, err)
	}
	return rng, nil
}

func (e *Extractor) classify(ix *transcript.Index, rng cliprange.ValidatedRange, description string) topic.Topic {
	text := ix.TextInRange(rng.Start(), rng.End())
	if text == "" {
		text = description
	}
	return topic.Classify(text)
}

func (e *Extractor) render(ctx context.Context, sourcePath string, ix *transcript.Index, rng cliprange.ValidatedRange, req Request) (*render.Clip, error) {
	opts := render.Options{
		AspectRatio: render.AspectRatio(req.AspectRatio),
		Subtitles:   req.Subtitles,
		Quality:     render.Quality(req.Quality),
	}
	var segs []transcript.Segment
	if req.Subtitles {
		var err error
		segs, err = ix.LookupOverlap(rng.Start(), rng.End())
		if err != nil {
			return nil, fmt.Errorf("collect subtitle segments: %w", err)
		}
	}
	return e.renderer.Render(ctx, sourcePath, rng, opts, segs)
}

// classifyFailure maps a resolution or validation error to its pipeline
// stage and decides whether a fresh resolution attempt could help.
func classifyFailure(err error) (stage Stage, retryable bool, reason string) {
	var tooShort *cliprange.ClipTooShortError
	if errors.As(err, &tooShort) {
		return StageValidation, true, fmt.Sprintf("the chosen range was only %.1fs long, below the %.0fs minimum", tooShort.Length, tooShort.Min)
	}
	if errors.Is(err, cliprange.ErrInvertedRange) {
		return StageValidation, false, ""
	}
	if errors.Is(err, resolve.ErrResolutionFailed) || errors.Is(err, resolve.ErrUnparsableResponse) {
		return StageResolution, true, "the response could not be parsed into a time range"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StageResolution, true, "the resolution call timed out"
	}
	return StageResolution, false, ""
}
