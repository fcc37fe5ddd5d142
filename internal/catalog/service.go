package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipdex/clipdex-agent/internal/clip"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

type CatalogService interface {
	RegisterTranscript(ctx context.Context, title, mediaPath string, segments []transcript.Segment) (*Transcript, error)
	GetTranscript(ctx context.Context, id string) (*Transcript, error)
	GetTranscripts(ctx context.Context) ([]*Transcript, error)
	CountTranscripts(ctx context.Context) (int, error)

	SubmitClip(ctx context.Context, transcriptID string, req clip.Request) (*ClipJob, error)
	GetClipJob(ctx context.Context, id string) (*ClipJob, error)
	GetClipJobs(ctx context.Context, limit int) ([]*ClipJob, error)
	GetClipJobsByTranscript(ctx context.Context, transcriptID string) ([]*ClipJob, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RegisterTranscript validates the segments and media path and stores the
// transcript. The segment list must be ordered and non-overlapping; a bad
// list is rejected here so every stored transcript is loadable later.
func (s *Service) RegisterTranscript(ctx context.Context, title, mediaPath string, segments []transcript.Segment) (*Transcript, error) {
	absPath, err := filepath.Abs(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("invalid media path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("media file does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media path is a directory")
	}

	ix, err := transcript.New(segments)
	if err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}

	if title == "" {
		title = filepath.Base(absPath)
	}

	t := &Transcript{
		ID:        NewID(),
		Title:     title,
		MediaPath: absPath,
		Duration:  ix.Duration(),
		Segments:  ix.Segments(),
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateTranscript(ctx, t); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("transcript registered",
			"transcript_id", t.ID, "title", title, "duration", t.Duration, "segments", len(t.Segments))
	}
	return t, nil
}

func (s *Service) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	return s.repo.GetTranscript(ctx, id)
}

func (s *Service) GetTranscripts(ctx context.Context) ([]*Transcript, error) {
	return s.repo.ListTranscripts(ctx)
}

func (s *Service) CountTranscripts(ctx context.Context) (int, error) {
	return s.repo.CountTranscripts(ctx)
}

// SubmitClip validates the request and enqueues a pending clip job for
// the runner to pick up.
func (s *Service) SubmitClip(ctx context.Context, transcriptID string, req clip.Request) (*ClipJob, error) {
	if err := clip.ValidateRequest(req); err != nil {
		return nil, err
	}

	t, err := s.repo.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("transcript not found")
	}

	now := time.Now()
	job := &ClipJob{
		ID:           NewID(),
		TranscriptID: transcriptID,
		Description:  req.Description,
		AspectRatio:  req.AspectRatio,
		Subtitles:    req.Subtitles,
		Quality:      req.Quality,
		Status:       JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateClipJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("clip job created", "job_id", job.ID, "transcript_id", transcriptID)
	}
	return job, nil
}

func (s *Service) GetClipJob(ctx context.Context, id string) (*ClipJob, error) {
	return s.repo.GetClipJob(ctx, id)
}

func (s *Service) GetClipJobs(ctx context.Context, limit int) ([]*ClipJob, error) {
	return s.repo.ListClipJobs(ctx, limit)
}

func (s *Service) GetClipJobsByTranscript(ctx context.Context, transcriptID string) ([]*ClipJob, error) {
	return s.repo.ListClipJobsByTranscript(ctx, transcriptID)
}
