// Package jsonlog stores the notification log as JSON Lines: one entry per
// line, appended with a single write and never rewritten.
package jsonlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rpggio/kinboard/internal/domain/notification"
)

// maxLineBytes bounds a single line; longer lines are treated as corrupt.
const maxLineBytes = 1 << 20

// Repository implements repository.NotificationRepository on a JSON Lines file.
type Repository struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a Repository writing to path. The file and its directory are
// created on first append.
func New(path string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{path: path, logger: logger}
}

// Path returns the backing file.
func (r *Repository) Path() string {
	return r.path
}

// Append writes entry as one line.
func (r *Repository) Append(ctx context.Context, entry *notification.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encode(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(line)
}

// Import appends entries in order with a single write.
func (r *Repository) Import(ctx context.Context, entries []notification.Entry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	for i := range entries {
		line, err := encode(&entries[i])
		if err != nil {
			return 0, err
		}
		buf.Write(line)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func encode(entry *notification.Entry) ([]byte, error) {
	line, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encoding notification: %w", err)
	}
	return append(line, '\n'), nil
}

func (r *Repository) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating notification dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening notification log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("appending notification: %w", err)
	}
	return f.Close()
}

// List returns every readable entry in file order. A missing or unreadable
// file reads as empty; corrupt lines are skipped.
func (r *Repository) List(ctx context.Context) ([]notification.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := []notification.Entry{}
	f, err := os.Open(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("notification log unreadable, treating as empty", "path", r.path, "error", err)
		}
		return entries, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry notification.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			r.logger.Warn("skipping corrupt notification line", "path", r.path, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("notification log read stopped early", "path", r.path, "line", lineNo, "error", err)
	}
	return entries, nil
}
