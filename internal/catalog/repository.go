package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipdex/clipdex-agent/internal/transcript"
)

type Repository interface {
	CreateTranscript(ctx context.Context, t *Transcript) error
	GetTranscript(ctx context.Context, id string) (*Transcript, error)
	ListTranscripts(ctx context.Context) ([]*Transcript, error)
	DeleteTranscript(ctx context.Context, id string) error
	CountTranscripts(ctx context.Context) (int, error)

	CreateClipJob(ctx context.Context, job *ClipJob) error
	GetClipJob(ctx context.Context, id string) (*ClipJob, error)
	ListClipJobs(ctx context.Context, limit int) ([]*ClipJob, error)
	ListClipJobsByTranscript(ctx context.Context, transcriptID string) ([]*ClipJob, error)
	ListPendingClipJobs(ctx context.Context) ([]*ClipJob, error)
	UpdateClipJobStatus(ctx context.Context, id, status, errorMsg string, attempts int) error
	UpdateClipJobResult(ctx context.Context, id, topic string, clipStart, clipEnd float64, outputPath string, attempts int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateTranscript(ctx context.Context, t *Transcript) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, title, media_path, duration, segments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.MediaPath, t.Duration, string(segments), t.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, media_path, duration, segments, created_at
		FROM transcripts WHERE id = ?
	`, id)
	return scanTranscript(row)
}

func scanTranscript(row *sql.Row) (*Transcript, error) {
	var t Transcript
	var segments, createdAt string

	err := row.Scan(&t.ID, &t.Title, &t.MediaPath, &t.Duration, &segments, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(segments), &t.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func (r *SQLiteRepository) ListTranscripts(ctx context.Context) ([]*Transcript, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, media_path, duration, segments, created_at
		FROM transcripts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var t Transcript
		var segments, createdAt string

		if err := rows.Scan(&t.ID, &t.Title, &t.MediaPath, &t.Duration, &segments, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(segments), &t.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		transcripts = append(transcripts, &t)
	}
	return transcripts, rows.Err()
}

func (r *SQLiteRepository) DeleteTranscript(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountTranscripts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) CreateClipJob(ctx context.Context, j *ClipJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clip_jobs (id, transcript_id, description, aspect_ratio, subtitles, quality,
			status, error, attempts, topic, clip_start, clip_end, output_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.TranscriptID, j.Description, j.AspectRatio, boolToInt(j.Subtitles), j.Quality,
		j.Status, nullString(j.Error), j.Attempts, nullString(j.Topic),
		nullFloat(j.ClipStart), nullFloat(j.ClipEnd), nullString(j.OutputPath),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

const clipJobColumns = `id, transcript_id, description, aspect_ratio, subtitles, quality,
	status, error, attempts, topic, clip_start, clip_end, output_path, created_at, updated_at`

func (r *SQLiteRepository) GetClipJob(ctx context.Context, id string) (*ClipJob, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+clipJobColumns+" FROM clip_jobs WHERE id = ?", id)
	return scanClipJob(row)
}

func scanClipJob(row *sql.Row) (*ClipJob, error) {
	var j ClipJob
	var subtitles int
	var errMsg, topic, outputPath sql.NullString
	var clipStart, clipEnd sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.TranscriptID, &j.Description, &j.AspectRatio, &subtitles, &j.Quality,
		&j.Status, &errMsg, &j.Attempts, &topic, &clipStart, &clipEnd, &outputPath, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.Subtitles = subtitles == 1
	j.Error = errMsg.String
	j.Topic = topic.String
	j.ClipStart = clipStart.Float64
	j.ClipEnd = clipEnd.Float64
	j.OutputPath = outputPath.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListClipJobs(ctx context.Context, limit int) ([]*ClipJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+clipJobColumns+" FROM clip_jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClipJobs(rows)
}

func (r *SQLiteRepository) ListClipJobsByTranscript(ctx context.Context, transcriptID string) ([]*ClipJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+clipJobColumns+" FROM clip_jobs WHERE transcript_id = ? ORDER BY created_at DESC", transcriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClipJobs(rows)
}

func (r *SQLiteRepository) ListPendingClipJobs(ctx context.Context) ([]*ClipJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+clipJobColumns+" FROM clip_jobs WHERE status = 'pending' ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClipJobs(rows)
}

func scanClipJobs(rows *sql.Rows) ([]*ClipJob, error) {
	var jobs []*ClipJob
	for rows.Next() {
		var j ClipJob
		var subtitles int
		var errMsg, topic, outputPath sql.NullString
		var clipStart, clipEnd sql.NullFloat64
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.TranscriptID, &j.Description, &j.AspectRatio, &subtitles, &j.Quality,
			&j.Status, &errMsg, &j.Attempts, &topic, &clipStart, &clipEnd, &outputPath, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.Subtitles = subtitles == 1
		j.Error = errMsg.String
		j.Topic = topic.String
		j.ClipStart = clipStart.Float64
		j.ClipEnd = clipEnd.Float64
		j.OutputPath = outputPath.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateClipJobStatus(ctx context.Context, id, status, errorMsg string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clip_jobs SET status = ?, error = ?, attempts = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), attempts, id)
	return err
}

func (r *SQLiteRepository) UpdateClipJobResult(ctx context.Context, id, topic string, clipStart, clipEnd float64, outputPath string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clip_jobs SET status = ?, error = NULL, attempts = ?, topic = ?,
			clip_start = ?, clip_end = ?, output_path = ?, updated_at = datetime('now')
		WHERE id = ?
	`, JobStatusCompleted, attempts, topic, clipStart, clipEnd, outputPath, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Index rebuilds the lookup structure for a stored transcript.
func (t *Transcript) Index() (*transcript.Index, error) {
	return transcript.New(t.Segments)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
