// Package library files rendered clips under topic-named directories.
package library

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipdex/clipdex-agent/internal/topic"
)

// Library owns the on-disk clip layout: one directory per topic under the
// configured root.
type Library struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Library {
	return &Library{root: root, logger: logger}
}

// Place moves a rendered clip into the topic's directory and returns the
// final path. Existing files are never overwritten; a numeric suffix is
// appended on collision.
func (l *Library) Place(clipPath string, t topic.Topic) (string, error) {
	dir := filepath.Join(l.root, string(t))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create topic dir: %w", err)
	}

	base := filepath.Base(clipPath)
	dest := filepath.Join(dir, base)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	if err := os.Rename(clipPath, dest); err != nil {
		// Rename fails across filesystems; fall back to copy-and-remove.
		if copyErr := copyFile(clipPath, dest); copyErr != nil {
			return "", fmt.Errorf("cannot place clip: %w", err)
		}
		os.Remove(clipPath)
	}

	l.logger.Info("clip filed", "topic", string(t), "path", dest)
	return dest, nil
}

// copyFile streams src to dst so large clips never have to fit in memory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
