package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/clipdex/clipdex-agent/internal/clip"
	"github.com/clipdex/clipdex-agent/internal/topic"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

// Extractor runs the clip pipeline for one job.
type Extractor interface {
	Extract(ctx context.Context, ix *transcript.Index, sourcePath string, req clip.Request) (*clip.Result, error)
}

// Placer files a finished clip under its topic directory and returns the
// final path.
type Placer interface {
	Place(clipPath string, t topic.Topic) (string, error)
}

// Runner drains pending clip jobs one at a time. Jobs are heavy (an LLM
// round trip plus an ffmpeg encode), so there is no concurrency knob.
type Runner struct {
	repo         Repository
	extractor    Extractor
	library      Placer
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, extractor Extractor, library Placer, logger *slog.Logger) *Runner {
	return &Runner{
		repo:         repo,
		extractor:    extractor,
		library:      library,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("clip job runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("clip job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("clip job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("clip job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) GetActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListClipJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			count++
		}
	}
	return count
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingClipJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing clip job", "job_id", job.ID, "transcript_id", job.TranscriptID)
	r.ProcessJob(ctx, job)
}

// ProcessJob runs a single clip job to completion, recording the outcome
// on the job row.
func (r *Runner) ProcessJob(ctx context.Context, job *ClipJob) {
	t, err := r.repo.GetTranscript(ctx, job.TranscriptID)
	if err != nil || t == nil {
		r.repo.UpdateClipJobStatus(ctx, job.ID, JobStatusFailed, "transcript not found", 0)
		return
	}

	ix, err := t.Index()
	if err != nil {
		r.repo.UpdateClipJobStatus(ctx, job.ID, JobStatusFailed, "stored transcript unreadable: "+err.Error(), 0)
		return
	}

	r.repo.UpdateClipJobStatus(ctx, job.ID, JobStatusRunning, "", 0)

	req := clip.Request{
		Description: job.Description,
		AspectRatio: job.AspectRatio,
		Subtitles:   job.Subtitles,
		Quality:     job.Quality,
	}

	result, err := r.extractor.Extract(ctx, ix, t.MediaPath, req)
	if err != nil {
		attempts := 1
		var exErr *clip.ExtractionError
		if errors.As(err, &exErr) {
			attempts = exErr.Attempts
		}
		r.repo.UpdateClipJobStatus(ctx, job.ID, JobStatusFailed, err.Error(), attempts)
		r.logger.Error("clip job failed", "job_id", job.ID, "error", err)
		return
	}

	finalPath, err := r.library.Place(result.Clip.Path, result.Topic)
	if err != nil {
		r.repo.UpdateClipJobStatus(ctx, job.ID, JobStatusFailed, "filing clip: "+err.Error(), result.Attempts)
		r.logger.Error("failed to file clip", "job_id", job.ID, "error", err)
		return
	}

	if err := r.repo.UpdateClipJobResult(ctx, job.ID, string(result.Topic),
		result.Range.Start(), result.Range.End(), finalPath, result.Attempts); err != nil {
		r.logger.Error("failed to record clip result", "job_id", job.ID, "error", err)
		return
	}

	r.logger.Info("clip job completed",
		"job_id", job.ID, "topic", string(result.Topic), "range", result.Range.String(), "output", finalPath)
}
