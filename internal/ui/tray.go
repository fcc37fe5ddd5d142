package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/clipdex/clipdex-agent/internal/catalog"
)

const refreshInterval = 5 * time.Second

//go:embed icon.png
var iconBytes []byte

type Tray struct {
	catalogSvc catalog.CatalogService
	runner     *catalog.Runner
	logger     *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu     sync.Mutex
	stopCh chan struct{}

	onOpenClips func() error
	onQuit      func()
}

type TrayConfig struct {
	CatalogService catalog.CatalogService
	Runner         *catalog.Runner
	Logger         *slog.Logger
	OnOpenClips    func() error
	OnQuit         func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		catalogSvc:  cfg.CatalogService,
		runner:      cfg.Runner,
		logger:      cfg.Logger,
		stopCh:      make(chan struct{}),
		onOpenClips: cfg.OnOpenClips,
		onQuit:      cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clipdex")
	systray.SetTooltip("Clipdex Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem("Clips: 0", "Completed clips")
	t.clipsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause clip rendering")

	openClipsItem := systray.AddMenuItem("Open Clips Folder...", "Open the rendered clips folder")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clipdex Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-openClipsItem.ClickedCh:
				t.handleOpenClips()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				close(t.stopCh)
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	if t.catalogSvc != nil {
		go t.refreshLoop()
	}

	t.logger.Info("system tray ready")
}

// refreshLoop keeps the status and clip-count menu items in sync with
// the job catalog until the tray quits.
func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *Tray) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	jobs, err := t.catalogSvc.GetClipJobs(ctx, 200)
	if err != nil {
		t.logger.Warn("tray refresh failed", "error", err)
		return
	}

	status, completed := summarize(jobs)
	t.UpdateStatus(status)
	t.UpdateClipCount(completed)
}

// summarize derives the status label and completed clip count shown in
// the tray menu from the current job list.
func summarize(jobs []*catalog.ClipJob) (string, int) {
	running := 0
	completed := 0
	for _, j := range jobs {
		switch j.Status {
		case catalog.JobStatusRunning:
			running++
		case catalog.JobStatusCompleted:
			completed++
		}
	}
	if running > 0 {
		return "Clipping", completed
	}
	return "Idle", completed
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleOpenClips() {
	if t.onOpenClips != nil {
		if err := t.onOpenClips(); err != nil {
			t.logger.Error("failed to open clips folder", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateClipCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clipsItem.SetTitle(fmt.Sprintf("Clips: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
