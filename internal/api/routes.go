package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipdex/clipdex-agent/internal/catalog"
	"github.com/clipdex/clipdex-agent/internal/clip"
	"github.com/clipdex/clipdex-agent/internal/topic"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/topics", listTopicsHandler())

		r.Post("/transcripts", registerTranscriptHandler(cfg))
		r.Get("/transcripts", listTranscriptsHandler(cfg))
		r.Get("/transcripts/{id}", getTranscriptHandler(cfg))
		r.Get("/transcripts/{id}/clips", listTranscriptClipsHandler(cfg))

		r.Post("/clips", submitClipHandler(cfg))
		r.Get("/clips", listClipsHandler(cfg))
		r.Get("/clips/{id}", getClipHandler(cfg))
		r.Get("/clips/{id}/download", downloadClipHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		transcriptsCount, _ := cfg.CatalogService.CountTranscripts(ctx)
		jobs, _ := cfg.Repository.ListClipJobs(ctx, 10)

		state := "idle"
		var activeJob *ClipJobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "clipping"
				resp := ClipJobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:            state,
			LastError:        lastError,
			TranscriptsCount: transcriptsCount,
			JobsRunning:      jobsRunning,
			ActiveJob:        activeJob,
		})
	}
}

func listTopicsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics := topic.All()
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = string(t)
		}
		WriteJSON(w, http.StatusOK, map[string][]string{"topics": names})
	}
}

func registerTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterTranscriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.MediaPath == "" {
			WriteError(w, http.StatusBadRequest, "media_path is required", "BAD_REQUEST")
			return
		}

		t, err := cfg.CatalogService.RegisterTranscript(r.Context(), req.Title, req.MediaPath, req.Segments)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, RegisterTranscriptResponse{TranscriptID: t.ID})
	}
}

func listTranscriptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transcripts, err := cfg.CatalogService.GetTranscripts(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list transcripts", "INTERNAL_ERROR")
			return
		}

		resp := TranscriptsResponse{Transcripts: make([]TranscriptResponse, len(transcripts))}
		for i, t := range transcripts {
			resp.Transcripts[i] = TranscriptToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		t, err := cfg.CatalogService.GetTranscript(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if t == nil {
			WriteError(w, http.StatusNotFound, "transcript not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, TranscriptToResponse(t))
	}
}

func listTranscriptClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		jobs, err := cfg.CatalogService.GetClipJobsByTranscript(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := ClipJobsResponse{Jobs: make([]ClipJobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = ClipJobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func submitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.TranscriptID == "" {
			WriteError(w, http.StatusBadRequest, "transcript_id is required", "BAD_REQUEST")
			return
		}

		job, err := cfg.CatalogService.SubmitClip(r.Context(), req.TranscriptID, clip.Request{
			Description: req.Description,
			AspectRatio: req.AspectRatio,
			Subtitles:   req.Subtitles,
			Quality:     req.Quality,
		})
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitClipResponse{JobID: job.ID})
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.CatalogService.GetClipJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clip jobs", "INTERNAL_ERROR")
			return
		}

		resp := ClipJobsResponse{Jobs: make([]ClipJobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = ClipJobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := cfg.CatalogService.GetClipJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "clip job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ClipJobToResponse(job))
	}
}

func downloadClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := cfg.CatalogService.GetClipJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "clip job not found", "NOT_FOUND")
			return
		}
		if job.Status != catalog.JobStatusCompleted || job.OutputPath == "" {
			WriteError(w, http.StatusConflict, "clip is not ready", "NOT_READY")
			return
		}

		if err := cfg.PlaybackServer.ServeClip(w, r, job.OutputPath, true); err != nil {
			cfg.Logger.Error("clip download error", "error", err, "job_id", id)
		}
	}
}
