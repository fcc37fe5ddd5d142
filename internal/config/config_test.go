package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	os.Setenv(EnvDataDir, t.TempDir())
	defer os.Unsetenv(EnvDataDir)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.OpenAIModel() != DefaultOpenAIModel {
		t.Errorf("OpenAIModel = %q, want %q", cfg.OpenAIModel(), DefaultOpenAIModel)
	}
	if cfg.MinClipSeconds() != DefaultMinClipSeconds {
		t.Errorf("MinClipSeconds = %v, want %v", cfg.MinClipSeconds(), DefaultMinClipSeconds)
	}
	if cfg.ClipsDir() != filepath.Join(cfg.DataDir(), "clips") {
		t.Errorf("ClipsDir = %q, want under data dir", cfg.ClipsDir())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	os.Setenv(EnvDataDir, t.TempDir())
	os.Setenv(EnvPort, "99999")
	defer os.Unsetenv(EnvDataDir)
	defer os.Unsetenv(EnvPort)

	if _, err := New(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestNew_FileOverridesAndEnvWins(t *testing.T) {
	dataDir := t.TempDir()
	content := `
port = 9000
log_level = "debug"

[openai]
api_key = "file-key"
model = "gpt-4o"

[clip]
min_seconds = 10.0
max_seconds = 90.0
snap_tolerance = 2.0
`
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFilename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv(EnvDataDir, dataDir)
	os.Setenv(EnvOpenAIKey, "env-key")
	defer os.Unsetenv(EnvDataDir)
	defer os.Unsetenv(EnvOpenAIKey)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port() != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel())
	}
	if cfg.OpenAIModel() != "gpt-4o" {
		t.Errorf("OpenAIModel = %q, want gpt-4o", cfg.OpenAIModel())
	}
	// Env overrides file
	if cfg.OpenAIKey() != "env-key" {
		t.Errorf("OpenAIKey = %q, want env-key", cfg.OpenAIKey())
	}
	if cfg.MinClipSeconds() != 10.0 || cfg.MaxClipSeconds() != 90.0 {
		t.Errorf("clip bounds = %v/%v, want 10/90", cfg.MinClipSeconds(), cfg.MaxClipSeconds())
	}
	if cfg.SnapTolerance() != 2.0 {
		t.Errorf("SnapTolerance = %v, want 2.0", cfg.SnapTolerance())
	}
}

func TestNew_TimeoutAndClipPolicyEnvOverrides(t *testing.T) {
	os.Setenv(EnvDataDir, t.TempDir())
	os.Setenv(EnvResolveTimeout, "5")
	os.Setenv(EnvResolveRetries, "0")
	os.Setenv(EnvRenderTimeout, "30")
	os.Setenv(EnvMinClipSeconds, "8")
	os.Setenv(EnvMaxClipSeconds, "40")
	os.Setenv(EnvSnapTolerance, "2.5")
	defer os.Unsetenv(EnvDataDir)
	defer os.Unsetenv(EnvResolveTimeout)
	defer os.Unsetenv(EnvResolveRetries)
	defer os.Unsetenv(EnvRenderTimeout)
	defer os.Unsetenv(EnvMinClipSeconds)
	defer os.Unsetenv(EnvMaxClipSeconds)
	defer os.Unsetenv(EnvSnapTolerance)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ResolveTimeout() != 5*time.Second {
		t.Errorf("ResolveTimeout = %v, want 5s", cfg.ResolveTimeout())
	}
	if cfg.ResolveRetries() != 0 {
		t.Errorf("ResolveRetries = %d, want 0", cfg.ResolveRetries())
	}
	if cfg.RenderTimeout() != 30*time.Second {
		t.Errorf("RenderTimeout = %v, want 30s", cfg.RenderTimeout())
	}
	if cfg.MinClipSeconds() != 8 || cfg.MaxClipSeconds() != 40 {
		t.Errorf("clip bounds = %v/%v, want 8/40", cfg.MinClipSeconds(), cfg.MaxClipSeconds())
	}
	if cfg.SnapTolerance() != 2.5 {
		t.Errorf("SnapTolerance = %v, want 2.5", cfg.SnapTolerance())
	}
}

func TestNew_ResolveTimeoutFromFileAndEnvWins(t *testing.T) {
	dataDir := t.TempDir()
	content := `
[openai]
timeout_seconds = 15
max_retries = 1
`
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFilename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv(EnvDataDir, dataDir)
	defer os.Unsetenv(EnvDataDir)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ResolveTimeout() != 15*time.Second {
		t.Errorf("ResolveTimeout = %v, want 15s", cfg.ResolveTimeout())
	}
	if cfg.ResolveRetries() != 1 {
		t.Errorf("ResolveRetries = %d, want 1", cfg.ResolveRetries())
	}

	// Env overrides file
	os.Setenv(EnvResolveTimeout, "7")
	defer os.Unsetenv(EnvResolveTimeout)

	cfg, err = New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ResolveTimeout() != 7*time.Second {
		t.Errorf("ResolveTimeout = %v, want 7s", cfg.ResolveTimeout())
	}
}

func TestNew_InvalidTimeoutAndPolicyEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"non-numeric resolve timeout", EnvResolveTimeout, "soon"},
		{"zero resolve timeout", EnvResolveTimeout, "0"},
		{"negative retries", EnvResolveRetries, "-1"},
		{"non-numeric render timeout", EnvRenderTimeout, "later"},
		{"negative snap tolerance", EnvSnapTolerance, "-0.5"},
		{"non-numeric min clip", EnvMinClipSeconds, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(EnvDataDir, t.TempDir())
			os.Setenv(tt.env, tt.value)
			defer os.Unsetenv(EnvDataDir)
			defer os.Unsetenv(tt.env)

			if _, err := New(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.env, tt.value)
			}
		})
	}
}

func TestNew_InvalidClipBounds(t *testing.T) {
	dataDir := t.TempDir()
	content := `
[clip]
min_seconds = 50.0
max_seconds = 10.0
`
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFilename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv(EnvDataDir, dataDir)
	defer os.Unsetenv(EnvDataDir)

	if _, err := New(); err == nil {
		t.Fatal("expected error for inverted clip bounds")
	}
}

func TestNew_MalformedConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFilename), []byte("port = = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv(EnvDataDir, dataDir)
	defer os.Unsetenv(EnvDataDir)

	if _, err := New(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
