package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/clipdex/clipdex-agent/internal/api"
	"github.com/clipdex/clipdex-agent/internal/catalog"
	"github.com/clipdex/clipdex-agent/internal/clip"
	"github.com/clipdex/clipdex-agent/internal/cliprange"
	"github.com/clipdex/clipdex-agent/internal/config"
	"github.com/clipdex/clipdex-agent/internal/db"
	"github.com/clipdex/clipdex-agent/internal/library"
	"github.com/clipdex/clipdex-agent/internal/logging"
	"github.com/clipdex/clipdex-agent/internal/playback"
	"github.com/clipdex/clipdex-agent/internal/render"
	"github.com/clipdex/clipdex-agent/internal/resolve"
	"github.com/clipdex/clipdex-agent/internal/ui"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ClipsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create clips dir: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkDir(), 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipdex agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    CLIPDEX AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Printf("║  Clips Dir:  %-45s ║\n", truncatePath(cfg.ClipsDir(), 45))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	if cfg.OpenAIKey() == "" {
		logger.Warn("no OpenAI API key configured, clip jobs will fail until one is set")
	}

	catalogSvc := catalog.NewService(repo, logger)
	playbackSvc := playback.NewServer(logger)

	resolver := resolve.NewOpenAIResolver(
		cfg.OpenAIBaseURL(), cfg.OpenAIKey(), cfg.OpenAIModel(),
		cfg.MinClipSeconds(), cfg.MaxClipSeconds(), logger)
	resolver.SetRetries(cfg.ResolveRetries())

	renderer, err := render.NewFFmpegRenderer(render.Config{
		FFmpegPath:  cfg.FFmpegPath(),
		FFprobePath: cfg.FFprobePath(),
		WorkDir:     cfg.WorkDir(),
		Timeout:     cfg.RenderTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	rangeOpts := cliprange.Options{
		MinClipSeconds: cfg.MinClipSeconds(),
		MaxClipSeconds: cfg.MaxClipSeconds(),
		SnapTolerance:  cfg.SnapTolerance(),
	}

	extractor := clip.NewExtractor(resolver, renderer, rangeOpts, cfg.ResolveTimeout(), logger)
	clipLibrary := library.New(cfg.ClipsDir(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := catalog.NewRunner(repo, extractor, clipLibrary, logger)
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		CatalogService: catalogSvc,
		Repository:     repo,
		Runner:         runner,
		PlaybackServer: playbackSvc,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			CatalogService: catalogSvc,
			Runner:         runner,
			Logger:         logger,
			OnOpenClips: func() error {
				return openFolder(cfg.ClipsDir())
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}

func openFolder(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

func truncatePath(p string, maxLen int) string {
	if len(p) <= maxLen {
		return p
	}
	return "..." + p[len(p)-maxLen+3:]
}
