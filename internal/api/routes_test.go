package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/clipdex/clipdex-agent/internal/catalog"
	"github.com/clipdex/clipdex-agent/internal/playback"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

const testToken = "test-token"

type memRepo struct {
	transcripts map[string]*catalog.Transcript
	jobs        map[string]*catalog.ClipJob
	config      map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		transcripts: map[string]*catalog.Transcript{},
		jobs:        map[string]*catalog.ClipJob{},
		config:      map[string]string{"auth_token": testToken},
	}
}

func (m *memRepo) CreateTranscript(ctx context.Context, t *catalog.Transcript) error {
	m.transcripts[t.ID] = t
	return nil
}

func (m *memRepo) GetTranscript(ctx context.Context, id string) (*catalog.Transcript, error) {
	return m.transcripts[id], nil
}

func (m *memRepo) ListTranscripts(ctx context.Context) ([]*catalog.Transcript, error) {
	var out []*catalog.Transcript
	for _, t := range m.transcripts {
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) DeleteTranscript(ctx context.Context, id string) error {
	delete(m.transcripts, id)
	return nil
}

func (m *memRepo) CountTranscripts(ctx context.Context) (int, error) {
	return len(m.transcripts), nil
}

func (m *memRepo) CreateClipJob(ctx context.Context, j *catalog.ClipJob) error {
	m.jobs[j.ID] = j
	return nil
}

func (m *memRepo) GetClipJob(ctx context.Context, id string) (*catalog.ClipJob, error) {
	return m.jobs[id], nil
}

func (m *memRepo) ListClipJobs(ctx context.Context, limit int) ([]*catalog.ClipJob, error) {
	var out []*catalog.ClipJob
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ListClipJobsByTranscript(ctx context.Context, transcriptID string) ([]*catalog.ClipJob, error) {
	var out []*catalog.ClipJob
	for _, j := range m.jobs {
		if j.TranscriptID == transcriptID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memRepo) ListPendingClipJobs(ctx context.Context) ([]*catalog.ClipJob, error) {
	var out []*catalog.ClipJob
	for _, j := range m.jobs {
		if j.Status == catalog.JobStatusPending {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateClipJobStatus(ctx context.Context, id, status, errorMsg string, attempts int) error {
	if j, ok := m.jobs[id]; ok {
		j.Status = status
		j.Error = errorMsg
		j.Attempts = attempts
	}
	return nil
}

func (m *memRepo) UpdateClipJobResult(ctx context.Context, id, topic string, clipStart, clipEnd float64, outputPath string, attempts int) error {
	if j, ok := m.jobs[id]; ok {
		j.Status = catalog.JobStatusCompleted
		j.Topic = topic
		j.ClipStart = clipStart
		j.ClipEnd = clipEnd
		j.OutputPath = outputPath
		j.Attempts = attempts
	}
	return nil
}

func (m *memRepo) GetConfig(ctx context.Context, key string) (string, error) {
	return m.config[key], nil
}

func (m *memRepo) SetConfig(ctx context.Context, key, value string) error {
	m.config[key] = value
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()
	svc := catalog.NewService(repo, nil)

	router := NewRouter(ServerConfig{
		CatalogService: svc,
		Repository:     repo,
		PlaybackServer: playback.NewServer(logger),
		Logger:         logger,
		StartTime:      time.Now().Add(-10 * time.Second),
		DeviceID:       "test-device",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func registerTestTranscript(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	media := filepath.Join(t.TempDir(), "episode.mp4")
	if err := os.WriteFile(media, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("writing media: %v", err)
	}

	resp := doRequest(t, srv, http.MethodPost, "/transcripts", RegisterTranscriptRequest{
		Title:     "Episode 1",
		MediaPath: media,
		Segments: []transcript.Segment{
			{Start: 0, End: 10, Text: "welcome back"},
			{Start: 10, End: 20, Text: "the fed raised rates"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /transcripts status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	id, _ := body["transcript_id"].(string)
	if id == "" {
		t.Fatal("transcript_id missing from response")
	}
	return id
}

func TestHealthEndpoint_NoAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["device_id"] != "test-device" {
		t.Errorf("device_id = %v", body["device_id"])
	}
}

func TestRegisterAndGetTranscript(t *testing.T) {
	srv, _ := newTestServer(t)
	id := registerTestTranscript(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/transcripts/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /transcripts/{id} status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["title"] != "Episode 1" {
		t.Errorf("title = %v", body["title"])
	}
	if body["duration"] != 20.0 {
		t.Errorf("duration = %v, want 20", body["duration"])
	}
	if body["segments"] != 2.0 {
		t.Errorf("segments = %v, want 2", body["segments"])
	}
}

func TestRegisterTranscript_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/transcripts", RegisterTranscriptRequest{
		MediaPath: "/nonexistent/video.mp4",
		Segments:  []transcript.Segment{{Start: 0, End: 10, Text: "x"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetTranscript_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/transcripts/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitClip(t *testing.T) {
	srv, repo := newTestServer(t)
	id := registerTestTranscript(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/clips", SubmitClipRequest{
		TranscriptID: id,
		Description:  "the rate hike part",
		AspectRatio:  "tall",
		Subtitles:    true,
		Quality:      "high",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /clips status = %d, want 202", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("job_id missing")
	}

	job := repo.jobs[jobID]
	if job == nil || job.Status != catalog.JobStatusPending {
		t.Fatalf("expected pending job in repo, got %+v", job)
	}
	if job.AspectRatio != "tall" || job.Quality != "high" || !job.Subtitles {
		t.Errorf("job fields = %+v", job)
	}
}

func TestSubmitClip_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	id := registerTestTranscript(t, srv)

	cases := []struct {
		name string
		req  SubmitClipRequest
	}{
		{"missing transcript", SubmitClipRequest{Description: "x", AspectRatio: "wide", Quality: "fast"}},
		{"unknown transcript", SubmitClipRequest{TranscriptID: "missing", Description: "x", AspectRatio: "wide", Quality: "fast"}},
		{"empty description", SubmitClipRequest{TranscriptID: id, AspectRatio: "wide", Quality: "fast"}},
		{"bad aspect ratio", SubmitClipRequest{TranscriptID: id, Description: "x", AspectRatio: "square", Quality: "fast"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, srv, http.MethodPost, "/clips", tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			resp.Body.Close()
		})
	}
}

func TestGetClip_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/clips/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDownloadClip(t *testing.T) {
	srv, repo := newTestServer(t)
	id := registerTestTranscript(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/clips", SubmitClipRequest{
		TranscriptID: id, Description: "x", AspectRatio: "wide", Quality: "fast",
	})
	jobID := decodeBody(t, resp)["job_id"].(string)

	t.Run("not ready", func(t *testing.T) {
		resp := doRequest(t, srv, http.MethodGet, "/clips/"+jobID+"/download", nil)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
		resp.Body.Close()
	})

	clipPath := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(clipPath, []byte("rendered bytes"), 0o644); err != nil {
		t.Fatalf("writing clip: %v", err)
	}
	repo.UpdateClipJobResult(context.Background(), jobID, "fed", 10, 20, clipPath, 1)

	t.Run("completed", func(t *testing.T) {
		resp := doRequest(t, srv, http.MethodGet, "/clips/"+jobID+"/download", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := io.ReadAll(resp.Body)
		if string(data) != "rendered bytes" {
			t.Errorf("body = %q", data)
		}
		if disp := resp.Header.Get("Content-Disposition"); disp == "" {
			t.Error("expected Content-Disposition header")
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	id := registerTestTranscript(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/status", nil)
	body := decodeBody(t, resp)
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}
	if body["transcripts_count"] != 1.0 {
		t.Errorf("transcripts_count = %v, want 1", body["transcripts_count"])
	}

	submitResp := doRequest(t, srv, http.MethodPost, "/clips", SubmitClipRequest{
		TranscriptID: id, Description: "x", AspectRatio: "wide", Quality: "fast",
	})
	jobID := decodeBody(t, submitResp)["job_id"].(string)
	repo.UpdateClipJobStatus(context.Background(), jobID, catalog.JobStatusRunning, "", 0)

	resp = doRequest(t, srv, http.MethodGet, "/status", nil)
	body = decodeBody(t, resp)
	if body["state"] != "clipping" {
		t.Errorf("state = %v, want clipping", body["state"])
	}
	if body["jobs_running"] != 1.0 {
		t.Errorf("jobs_running = %v, want 1", body["jobs_running"])
	}
}

func TestListTopics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/topics", nil)
	body := decodeBody(t, resp)
	topics, ok := body["topics"].([]interface{})
	if !ok || len(topics) == 0 {
		t.Fatalf("topics = %v", body["topics"])
	}
	if topics[len(topics)-1] != "general" {
		t.Errorf("last topic = %v, want general", topics[len(topics)-1])
	}
}
