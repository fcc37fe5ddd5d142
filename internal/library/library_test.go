package library

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipdex/clipdex-agent/internal/topic"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeClip(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("clip data"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlace_CreatesTopicDirectory(t *testing.T) {
	root := t.TempDir()
	work := t.TempDir()
	lib := New(root, testLogger())

	clip := writeClip(t, work, "abc123.mp4")

	dest, err := lib.Place(clip, topic.Fed)
	if err != nil {
		t.Fatalf("Place error = %v", err)
	}

	if dest != filepath.Join(root, "fed", "abc123.mp4") {
		t.Errorf("dest = %q", dest)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("placed clip missing: %v", err)
	}
	if _, err := os.Stat(clip); !os.IsNotExist(err) {
		t.Error("source clip not moved away")
	}
}

func TestPlace_NeverOverwrites(t *testing.T) {
	root := t.TempDir()
	work := t.TempDir()
	lib := New(root, testLogger())

	first := writeClip(t, work, "clip.mp4")
	if _, err := lib.Place(first, topic.Markets); err != nil {
		t.Fatal(err)
	}

	second := writeClip(t, work, "clip.mp4")
	dest, err := lib.Place(second, topic.Markets)
	if err != nil {
		t.Fatalf("Place error = %v", err)
	}

	if dest != filepath.Join(root, "markets", "clip_1.mp4") {
		t.Errorf("dest = %q, want suffixed name", dest)
	}
}

func TestCopyFile_StreamsContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")

	payload := bytes.Repeat([]byte("frame"), 4096)
	if err := os.WriteFile(src, payload, 0644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile error = %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("copied %d bytes, want %d identical bytes", len(got), len(payload))
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := copyFile(filepath.Join(dir, "absent.mp4"), filepath.Join(dir, "dst.mp4"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
