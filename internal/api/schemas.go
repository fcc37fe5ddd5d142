package api

import (
	"time"

	"github.com/clipdex/clipdex-agent/internal/catalog"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State            string           `json:"state"`
	LastError        string           `json:"last_error,omitempty"`
	TranscriptsCount int              `json:"transcripts_count"`
	JobsRunning      int              `json:"jobs_running"`
	ActiveJob        *ClipJobResponse `json:"active_job,omitempty"`
}

type RegisterTranscriptRequest struct {
	Title     string               `json:"title,omitempty"`
	MediaPath string               `json:"media_path"`
	Segments  []transcript.Segment `json:"segments"`
}

type RegisterTranscriptResponse struct {
	TranscriptID string `json:"transcript_id"`
}

type TranscriptResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	MediaPath string  `json:"media_path"`
	Duration  float64 `json:"duration"`
	Segments  int     `json:"segments"`
	CreatedAt string  `json:"created_at"`
}

type TranscriptsResponse struct {
	Transcripts []TranscriptResponse `json:"transcripts"`
}

type SubmitClipRequest struct {
	TranscriptID string `json:"transcript_id"`
	Description  string `json:"description"`
	AspectRatio  string `json:"aspect_ratio"`
	Subtitles    bool   `json:"subtitles"`
	Quality      string `json:"quality"`
}

type SubmitClipResponse struct {
	JobID string `json:"job_id"`
}

type ClipJobResponse struct {
	ID           string  `json:"id"`
	TranscriptID string  `json:"transcript_id"`
	Description  string  `json:"description"`
	AspectRatio  string  `json:"aspect_ratio"`
	Subtitles    bool    `json:"subtitles"`
	Quality      string  `json:"quality"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	Attempts     int     `json:"attempts"`
	Topic        string  `json:"topic,omitempty"`
	ClipStart    float64 `json:"clip_start,omitempty"`
	ClipEnd      float64 `json:"clip_end,omitempty"`
	OutputPath   string  `json:"output_path,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type ClipJobsResponse struct {
	Jobs []ClipJobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func TranscriptToResponse(t *catalog.Transcript) TranscriptResponse {
	return TranscriptResponse{
		ID:        t.ID,
		Title:     t.Title,
		MediaPath: t.MediaPath,
		Duration:  t.Duration,
		Segments:  len(t.Segments),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func ClipJobToResponse(j *catalog.ClipJob) ClipJobResponse {
	return ClipJobResponse{
		ID:           j.ID,
		TranscriptID: j.TranscriptID,
		Description:  j.Description,
		AspectRatio:  j.AspectRatio,
		Subtitles:    j.Subtitles,
		Quality:      j.Quality,
		Status:       j.Status,
		Error:        j.Error,
		Attempts:     j.Attempts,
		Topic:        j.Topic,
		ClipStart:    j.ClipStart,
		ClipEnd:      j.ClipEnd,
		OutputPath:   j.OutputPath,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.Format(time.RFC3339),
	}
}
