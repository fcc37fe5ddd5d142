// Package config provides configuration management for the Clipdex Agent.
// Values are resolved in three layers: built-in defaults, then an optional
// TOML config file, then CLIPDEX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort     = 8686
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipdex"

	// Environment variable names
	EnvPort       = "CLIPDEX_PORT"
	EnvLogLevel   = "CLIPDEX_LOG_LEVEL"
	EnvDataDir    = "CLIPDEX_DATA_DIR"
	EnvClipsDir   = "CLIPDEX_CLIPS_DIR"
	EnvConfigFile = "CLIPDEX_CONFIG"
	EnvHeadless   = "CLIPDEX_HEADLESS"

	// Resolver environment variable names
	EnvOpenAIKey     = "CLIPDEX_OPENAI_API_KEY"
	EnvOpenAIBaseURL = "CLIPDEX_OPENAI_BASE_URL"
	EnvOpenAIModel   = "CLIPDEX_OPENAI_MODEL"

	// Renderer environment variable names
	EnvFFmpegPath  = "CLIPDEX_FFMPEG"
	EnvFFprobePath = "CLIPDEX_FFPROBE"

	// Timeout and clip policy environment variable names
	EnvResolveTimeout = "CLIPDEX_RESOLVE_TIMEOUT"
	EnvResolveRetries = "CLIPDEX_RESOLVE_RETRIES"
	EnvRenderTimeout  = "CLIPDEX_RENDER_TIMEOUT"
	EnvMinClipSeconds = "CLIPDEX_MIN_CLIP_SECONDS"
	EnvMaxClipSeconds = "CLIPDEX_MAX_CLIP_SECONDS"
	EnvSnapTolerance  = "CLIPDEX_SNAP_TOLERANCE"

	// Database filename
	DBFilename = "clipdex.db"

	// Config filename inside the data dir
	ConfigFilename = "config.toml"

	// Resolver defaults
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"

	// Clip policy defaults
	DefaultMinClipSeconds = 5.0
	DefaultMaxClipSeconds = 120.0
	DefaultSnapTolerance  = 1.0

	// External call timeouts (seconds) and retry budget
	DefaultResolveTimeout = 60
	DefaultResolveRetries = 2
	DefaultRenderTimeout  = 600
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ClipsDir() string
	WorkDir() string
	Headless() bool

	OpenAIKey() string
	OpenAIBaseURL() string
	OpenAIModel() string
	ResolveTimeout() time.Duration
	ResolveRetries() int
	RenderTimeout() time.Duration

	FFmpegPath() string
	FFprobePath() string

	MinClipSeconds() float64
	MaxClipSeconds() float64
	SnapTolerance() float64
}

// fileConfig is the TOML shape of the optional config file.
type fileConfig struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	ClipsDir string `toml:"clips_dir"`
	Headless bool   `toml:"headless"`

	OpenAI struct {
		APIKey         string `toml:"api_key"`
		BaseURL        string `toml:"base_url"`
		Model          string `toml:"model"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
		MaxRetries     *int   `toml:"max_retries"`
	} `toml:"openai"`

	Render struct {
		FFmpeg         string `toml:"ffmpeg"`
		FFprobe        string `toml:"ffprobe"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
	} `toml:"render"`

	Clip struct {
		MinSeconds    float64 `toml:"min_seconds"`
		MaxSeconds    float64 `toml:"max_seconds"`
		SnapTolerance float64 `toml:"snap_tolerance"`
	} `toml:"clip"`
}

// EnvConfig resolves configuration from defaults, file and environment
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	clipsDir string
	headless bool

	openAIKey     string
	openAIBaseURL string
	openAIModel   string

	ffmpegPath  string
	ffprobePath string

	resolveTimeout time.Duration
	resolveRetries int
	renderTimeout  time.Duration

	minClipSeconds float64
	maxClipSeconds float64
	snapTolerance  float64
}

// New creates a new EnvConfig with defaults, file values and environment
// variable overrides applied in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		openAIBaseURL:  DefaultOpenAIBaseURL,
		openAIModel:    DefaultOpenAIModel,
		resolveTimeout: DefaultResolveTimeout * time.Second,
		resolveRetries: DefaultResolveRetries,
		renderTimeout:  DefaultRenderTimeout * time.Second,
		minClipSeconds: DefaultMinClipSeconds,
		maxClipSeconds: DefaultMaxClipSeconds,
		snapTolerance:  DefaultSnapTolerance,
	}

	// Data dir must resolve before the config file can be found
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.clipsDir == "" {
		cfg.clipsDir = filepath.Join(cfg.dataDir, "clips")
	}

	if cfg.minClipSeconds <= 0 || cfg.maxClipSeconds <= cfg.minClipSeconds {
		return nil, fmt.Errorf("invalid clip length bounds: min=%.1f max=%.1f",
			cfg.minClipSeconds, cfg.maxClipSeconds)
	}

	return cfg, nil
}

func (c *EnvConfig) loadFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(c.dataDir, ConfigFilename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.ClipsDir != "" {
		c.clipsDir = fc.ClipsDir
	}
	if fc.Headless {
		c.headless = true
	}
	if fc.OpenAI.APIKey != "" {
		c.openAIKey = fc.OpenAI.APIKey
	}
	if fc.OpenAI.BaseURL != "" {
		c.openAIBaseURL = fc.OpenAI.BaseURL
	}
	if fc.OpenAI.Model != "" {
		c.openAIModel = fc.OpenAI.Model
	}
	if fc.OpenAI.TimeoutSeconds > 0 {
		c.resolveTimeout = time.Duration(fc.OpenAI.TimeoutSeconds) * time.Second
	}
	if fc.OpenAI.MaxRetries != nil && *fc.OpenAI.MaxRetries >= 0 {
		c.resolveRetries = *fc.OpenAI.MaxRetries
	}
	if fc.Render.FFmpeg != "" {
		c.ffmpegPath = fc.Render.FFmpeg
	}
	if fc.Render.FFprobe != "" {
		c.ffprobePath = fc.Render.FFprobe
	}
	if fc.Render.TimeoutSeconds > 0 {
		c.renderTimeout = time.Duration(fc.Render.TimeoutSeconds) * time.Second
	}
	if fc.Clip.MinSeconds > 0 {
		c.minClipSeconds = fc.Clip.MinSeconds
	}
	if fc.Clip.MaxSeconds > 0 {
		c.maxClipSeconds = fc.Clip.MaxSeconds
	}
	if fc.Clip.SnapTolerance > 0 {
		c.snapTolerance = fc.Clip.SnapTolerance
	}

	return nil
}

func (c *EnvConfig) loadEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}

	if cd := os.Getenv(EnvClipsDir); cd != "" {
		c.clipsDir = cd
	}

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		c.headless = true
	}

	if k := os.Getenv(EnvOpenAIKey); k != "" {
		c.openAIKey = k
	}
	if u := os.Getenv(EnvOpenAIBaseURL); u != "" {
		c.openAIBaseURL = u
	}
	if m := os.Getenv(EnvOpenAIModel); m != "" {
		c.openAIModel = m
	}

	if f := os.Getenv(EnvFFmpegPath); f != "" {
		c.ffmpegPath = f
	}
	if f := os.Getenv(EnvFFprobePath); f != "" {
		c.ffprobePath = f
	}

	if v := os.Getenv(EnvResolveTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvResolveTimeout, err)
		}
		if secs <= 0 {
			return fmt.Errorf("invalid %s: must be a positive number of seconds", EnvResolveTimeout)
		}
		c.resolveTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(EnvResolveRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvResolveRetries, err)
		}
		if n < 0 {
			return fmt.Errorf("invalid %s: must not be negative", EnvResolveRetries)
		}
		c.resolveRetries = n
	}
	if v := os.Getenv(EnvRenderTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRenderTimeout, err)
		}
		if secs <= 0 {
			return fmt.Errorf("invalid %s: must be a positive number of seconds", EnvRenderTimeout)
		}
		c.renderTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv(EnvMinClipSeconds); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMinClipSeconds, err)
		}
		c.minClipSeconds = f
	}
	if v := os.Getenv(EnvMaxClipSeconds); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxClipSeconds, err)
		}
		c.maxClipSeconds = f
	}
	if v := os.Getenv(EnvSnapTolerance); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSnapTolerance, err)
		}
		if f < 0 {
			return fmt.Errorf("invalid %s: must not be negative", EnvSnapTolerance)
		}
		c.snapTolerance = f
	}

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ClipsDir returns the directory rendered clips are filed under
func (c *EnvConfig) ClipsDir() string {
	return c.clipsDir
}

// WorkDir returns the scratch directory for in-flight render output
func (c *EnvConfig) WorkDir() string {
	return filepath.Join(c.dataDir, "work")
}

// Headless reports whether the system tray is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) OpenAIKey() string {
	return c.openAIKey
}

func (c *EnvConfig) OpenAIBaseURL() string {
	return c.openAIBaseURL
}

func (c *EnvConfig) OpenAIModel() string {
	return c.openAIModel
}

func (c *EnvConfig) ResolveTimeout() time.Duration {
	return c.resolveTimeout
}

// ResolveRetries returns the transport retry budget for resolver calls.
func (c *EnvConfig) ResolveRetries() int {
	return c.resolveRetries
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return c.renderTimeout
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) MinClipSeconds() float64 {
	return c.minClipSeconds
}

func (c *EnvConfig) MaxClipSeconds() float64 {
	return c.maxClipSeconds
}

func (c *EnvConfig) SnapTolerance() float64 {
	return c.snapTolerance
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
