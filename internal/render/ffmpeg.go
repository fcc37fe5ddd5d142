package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipdex/clipdex-agent/internal/cliprange"
	"github.com/clipdex/clipdex-agent/internal/subtitle"
	"github.com/clipdex/clipdex-agent/internal/transcript"
)

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

	// minOutputBytes is the sanity floor for a rendered clip file.
	minOutputBytes = 1024
)

// Renderer produces a clip file from a validated range.
type Renderer interface {
	Render(ctx context.Context, sourcePath string, rng cliprange.ValidatedRange, opts Options, segs []transcript.Segment) (*Clip, error)
}

// Config holds the ffmpeg renderer's configuration.
type Config struct {
	FFmpegPath  string        // path to ffmpeg binary; empty = auto-detect
	FFprobePath string        // path to ffprobe binary; empty = auto-detect
	WorkDir     string        // scratch dir for in-flight output
	Timeout     time.Duration // per-render timeout
	Logger      *slog.Logger
}

// FFmpegRenderer is the production Renderer implementation.
type FFmpegRenderer struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
	runner  commandRunner
}

// NewFFmpegRenderer resolves the ffmpeg/ffprobe binaries and prepares the
// work directory.
func NewFFmpegRenderer(cfg Config) (*FFmpegRenderer, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create work dir: %w", err)
	}

	cfg.Logger.Info("renderer initialised",
		"ffmpeg", ffmpeg,
		"ffprobe", ffprobe,
		"work_dir", cfg.WorkDir,
	)

	return &FFmpegRenderer{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe, runner: execRunner{}}, nil
}

// Render cuts, reformats and optionally subtitles the source media. Output
// is written to a temporary path and renamed into place only on success;
// the temporary file and subtitle sidecar are removed on every exit path.
func (r *FFmpegRenderer) Render(ctx context.Context, sourcePath string, rng cliprange.ValidatedRange, opts Options, segs []transcript.Segment) (*Clip, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &RenderError{Reason: fmt.Sprintf("source media unavailable: %v", err)}
	}

	params, ok := qualityTable[opts.Quality]
	if !ok {
		return nil, &RenderError{Reason: fmt.Sprintf("unknown quality %q", opts.Quality)}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	tmpPath := filepath.Join(r.cfg.WorkDir, id+".partial.mp4")
	finalPath := filepath.Join(r.cfg.WorkDir, id+".mp4")
	defer os.Remove(tmpPath)

	var srtPath string
	if opts.Subtitles {
		cues := subtitle.CuesFromSegments(segs, rng.Start(), rng.End())
		srtPath = filepath.Join(r.cfg.WorkDir, id+".srt")
		if err := os.WriteFile(srtPath, []byte(subtitle.FormatSRT(cues)), 0644); err != nil {
			return nil, &RenderError{Reason: fmt.Sprintf("cannot write subtitle file: %v", err)}
		}
		defer os.Remove(srtPath)
	}

	args := buildArgs(sourcePath, tmpPath, rng, opts, params, srtPath)

	r.cfg.Logger.Info("rendering clip",
		"range", rng.String(),
		"aspect_ratio", string(opts.AspectRatio),
		"quality", string(opts.Quality),
		"subtitles", opts.Subtitles,
	)

	start := time.Now()
	result := r.runner.Run(ctx, r.ffmpeg, args...)
	elapsed := time.Since(start)

	if result.ExitCode != 0 {
		r.cfg.Logger.Warn("ffmpeg failed",
			"exit_code", result.ExitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(result.StderrTail, 512),
		)
		return nil, &RenderError{
			Reason:     "ffmpeg exited non-zero",
			ExitCode:   result.ExitCode,
			StderrTail: truncate(result.StderrTail, 512),
		}
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return nil, &RenderError{Reason: "ffmpeg produced no output"}
	}
	if info.Size() < minOutputBytes {
		return nil, &RenderError{Reason: fmt.Sprintf("output below sanity size (%d bytes)", info.Size())}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, &RenderError{Reason: fmt.Sprintf("cannot finalise output: %v", err)}
	}

	duration, err := r.probeDuration(ctx, finalPath)
	if err != nil {
		// Probe failure after a good encode is diagnostic, not fatal.
		r.cfg.Logger.Warn("cannot probe rendered clip duration", "error", err)
		duration = rng.Duration()
	}

	r.cfg.Logger.Info("clip rendered",
		"duration_s", duration,
		"bytes", info.Size(),
		"encode_ms", elapsed.Milliseconds(),
	)

	return &Clip{
		Path:        finalPath,
		Range:       rng,
		Duration:    duration,
		AspectRatio: opts.AspectRatio,
	}, nil
}

// buildArgs assembles the ffmpeg invocation. Reformatting always requires a
// re-encode, so the video stream goes through libx264 with the quality
// table's parameters.
func buildArgs(src, out string, rng cliprange.ValidatedRange, opts Options, params encodeParams, srtPath string) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(rng.Start()),
		"-i", src,
		"-t", formatSeconds(rng.Duration()),
	}

	filters := []string{videoFilter(opts.AspectRatio)}
	if srtPath != "" {
		filters = append(filters, "subtitles="+escapeFilterPath(srtPath))
	}
	args = append(args, "-vf", strings.Join(filters, ","))

	args = append(args,
		"-c:v", "libx264",
		"-preset", params.Preset,
		"-crf", params.CRF,
		"-c:a", "aac",
		"-movflags", "+faststart",
		out,
	)
	return args
}

func videoFilter(ar AspectRatio) string {
	if ar == Tall {
		return "crop=ih*9/16:ih,scale=1080:1920"
	}
	return "scale=1920:1080"
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// ffprobeFormat is the slice of ffprobe JSON output the renderer reads.
type ffprobeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probeDuration reads the container duration of a media file.
func (r *FFmpegRenderer) probeDuration(ctx context.Context, path string) (float64, error) {
	result := r.runner.Run(ctx, r.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if result.ExitCode != 0 {
		return 0, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, truncate(result.StderrTail, 256))
	}

	var parsed ffprobeFormat
	if err := json.Unmarshal([]byte(result.Stdout), &parsed); err != nil {
		return 0, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}
	if parsed.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output missing duration")
	}
	return strconv.ParseFloat(parsed.Format.Duration, 64)
}

// ProbeDuration exposes the duration probe for callers validating source
// media before queueing work.
func (r *FFmpegRenderer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return r.probeDuration(ctx, path)
}

// commandRunner abstracts subprocess execution so tests can intercept the
// exact invocations.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) runResult
}

type runResult struct {
	ExitCode   int
	Stdout     string
	StderrTail string
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) runResult {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderr, limit: maxStderrBytes})

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return runResult{
		ExitCode:   exitCode,
		Stdout:     stdout.String(),
		StderrTail: stderr.String(),
	}
}

// resolveBinary finds a usable media binary.
func resolveBinary(preferred, fallback string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", fallback, preferred)
	}
	p, err := exec.LookPath(fallback)
	if err != nil {
		return "", fmt.Errorf("no %s binary found on PATH", fallback)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
