package photo

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpggio/kinboard/internal/domain/index"
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// File is one uploaded file handed to the store.
type File struct {
	Name        string
	Open        func() (io.ReadCloser, error)
	Description string
}

// Saved describes a file written by the store.
type Saved struct {
	Name            string `json:"name"`
	Index           int    `json:"index"`
	Path            string `json:"-"`
	DescriptionFile string `json:"description_file,omitempty"`
	Description     string `json:"-"`
}

// Store persists uploads into per-phone directories.
type Store struct {
	alloc   *index.Allocator
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewStore creates a Store accepting the given extensions (case-insensitive,
// with or without the leading dot).
func NewStore(alloc *index.Allocator, extensions []string, logger *slog.Logger) *Store {
	if alloc == nil {
		alloc = index.NewAllocator()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Store{alloc: alloc, allowed: allowed, logger: logger}
}

// Allowed reports whether name carries an accepted extension.
func (s *Store) Allowed(name string) bool {
	_, ok := s.allowed[strings.ToLower(filepath.Ext(name))]
	return ok
}

// HasAllowed reports whether at least one file would be saved.
func (s *Store) HasAllowed(files []File) bool {
	for _, f := range files {
		if f.Name != "" && f.Open != nil && s.Allowed(f.Name) {
			return true
		}
	}
	return false
}

// SaveUploads saves files and returns how many were written.
func (s *Store) SaveUploads(files []File, dir, prefix string) (int, error) {
	saved, err := s.Save(files, dir, prefix)
	return len(saved), err
}

// Save writes every accepted file to dir as <prefix><N><ext>, in order.
// Files without a name or with a rejected extension are skipped. A file with
// a description also gets <prefix><N>.txt. Files written before an error stay
// on disk.
func (s *Store) Save(files []File, dir, prefix string) ([]Saved, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var saved []Saved
	for _, f := range files {
		if f.Name == "" || f.Open == nil {
			continue
		}
		if !s.Allowed(f.Name) {
			s.logger.Debug("skipping upload with rejected extension", "file", f.Name, "dir", dir)
			continue
		}

		item, err := s.saveOne(f, dir, prefix)
		if item.Name != "" {
			saved = append(saved, item)
		}
		if err != nil {
			return saved, err
		}
	}
	return saved, nil
}

func (s *Store) saveOne(f File, dir, prefix string) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	out, n, err := s.alloc.Reserve(dir, prefix, ext)
	if err != nil {
		return Saved{}, err
	}
	path := out.Name()

	if err := copyUpload(out, f); err != nil {
		_ = os.Remove(path)
		return Saved{}, fmt.Errorf("writing %s: %w", path, err)
	}

	item := Saved{
		Name:  filepath.Base(path),
		Index: n,
		Path:  path,
	}

	if f.Description != "" {
		descName := index.Name(prefix, n, ".txt")
		if err := os.WriteFile(filepath.Join(dir, descName), []byte(f.Description), 0o644); err != nil {
			return item, fmt.Errorf("writing %s: %w", descName, err)
		}
		item.DescriptionFile = descName
		item.Description = f.Description
	}
	return item, nil
}

// SaveText writes text alone as the next <prefix><N>.txt in dir.
func (s *Store) SaveText(dir, prefix, text string) (Saved, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("creating %s: %w", dir, err)
	}
	out, n, err := s.alloc.Reserve(dir, prefix, ".txt")
	if err != nil {
		return Saved{}, err
	}
	path := out.Name()
	if _, err := io.WriteString(out, text); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return Saved{}, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return Saved{}, fmt.Errorf("writing %s: %w", path, err)
	}
	name := filepath.Base(path)
	return Saved{Name: name, Index: n, Path: path, DescriptionFile: name, Description: text}, nil
}

// Lock serializes work on dir with the store's own index reservations.
// Reserve must not be called on dir while the lock is held.
func (s *Store) Lock(dir string) func() {
	return s.alloc.Lock(dir)
}

func copyUpload(out *os.File, f File) error {
	in, err := f.Open()
	if err != nil {
		_ = out.Close()
		return err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// FromBytes wraps in-memory content as a File.
func FromBytes(name string, data []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
