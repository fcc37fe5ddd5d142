package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

// Transcript is a registered media file with its timestamped transcript.
type Transcript struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	MediaPath string               `json:"media_path"`
	Duration  float64              `json:"duration"`
	Segments  []transcript.Segment `json:"segments"`
	CreatedAt time.Time            `json:"created_at"`
}

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ClipJob tracks one clip request through the pipeline. The topic, range
// and output fields are filled in on completion.
type ClipJob struct {
	ID           string    `json:"id"`
	TranscriptID string    `json:"transcript_id"`
	Description  string    `json:"description"`
	AspectRatio  string    `json:"aspect_ratio"`
	Subtitles    bool      `json:"subtitles"`
	Quality      string    `json:"quality"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Attempts     int       `json:"attempts"`
	Topic        string    `json:"topic,omitempty"`
	ClipStart    float64   `json:"clip_start,omitempty"`
	ClipEnd      float64   `json:"clip_end,omitempty"`
	OutputPath   string    `json:"output_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewID() string {
	return uuid.NewString()
}
