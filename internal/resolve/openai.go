package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

const (
	// MaxRetries is the default bound on additional attempts after a
	// retryable transport failure; the first call plus retries gives at
	// most three requests. Override with SetRetries.
	MaxRetries = 2

	maxResponseBytes = 64 * 1024
	maxPromptBytes   = 48 * 1024
	retryBaseDelay   = 500 * time.Millisecond
)

// OpenAIResolver resolves clip descriptions through the chat-completions
// endpoint of an OpenAI-compatible API.
type OpenAIResolver struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
	retries    int

	minClipSeconds float64
	maxClipSeconds float64
}

func NewOpenAIResolver(baseURL, apiKey, model string, minClip, maxClip float64, logger *slog.Logger) *OpenAIResolver {
	return &OpenAIResolver{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:         logger,
		retries:        MaxRetries,
		minClipSeconds: minClip,
		maxClipSeconds: maxClip,
	}
}

// SetRetries overrides the transport retry budget. Negative values are
// ignored; zero disables retries entirely.
func (r *OpenAIResolver) SetRetries(n int) {
	if n >= 0 {
		r.retries = n
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Resolve builds a bounded prompt from the transcript and asks the model
// for a {"start","end"} range. An unparsable reply triggers exactly one
// strict re-prompt before the failure becomes terminal.
func (r *OpenAIResolver) Resolve(ctx context.Context, ix *transcript.Index, description string) (CandidateRange, error) {
	prompt := buildPrompt(ix.PromptContext(maxPromptBytes), description, r.minClipSeconds, r.maxClipSeconds)

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	content, err := r.complete(ctx, messages)
	if err != nil {
		return CandidateRange{}, err
	}

	rng, parseErr := parseRange(content)
	if parseErr == nil {
		r.logger.Info("resolved candidate range",
			"start", rng.Start,
			"end", rng.End,
		)
		return rng, nil
	}

	r.logger.Warn("resolver reply unparsable, issuing strict re-prompt", "error", parseErr)

	messages = append(messages,
		chatMessage{Role: "assistant", Content: content},
		chatMessage{Role: "user", Content: strictReprompt},
	)

	content, err = r.complete(ctx, messages)
	if err != nil {
		return CandidateRange{}, err
	}

	rng, parseErr = parseRange(content)
	if parseErr != nil {
		return CandidateRange{}, fmt.Errorf("%w: %w", ErrResolutionFailed, parseErr)
	}

	r.logger.Info("resolved candidate range on strict re-prompt",
		"start", rng.Start,
		"end", rng.End,
	)
	return rng, nil
}

// complete performs one chat-completion call, retrying retryable transport
// failures with exponential backoff.
func (r *OpenAIResolver) complete(ctx context.Context, messages []chatMessage) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			r.logger.Warn("retrying language-model call",
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", &CollaboratorError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		content, err := r.completeOnce(ctx, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var collabErr *CollaboratorError
		if !errors.As(err, &collabErr) || !collabErr.IsRetryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (r *OpenAIResolver) completeOnce(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := r.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", &CollaboratorError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &CollaboratorError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in reply", ErrUnparsableResponse)
	}

	r.logger.Debug("language-model call completed",
		"model", r.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return parsed.Choices[0].Message.Content, nil
}
