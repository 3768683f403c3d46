package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// maxReserveAttempts bounds the exclusive-create retry loop in Reserve.
const maxReserveAttempts = 64

// ErrExhausted is returned when no free name could be reserved.
var ErrExhausted = errors.New("no free index could be reserved")

// NextIndex returns one more than the highest index used by files named
// prefix+<digits>+<ext> directly inside dir. A missing directory yields 1.
func NextIndex(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, ok := Parse(entry.Name(), prefix)
		if ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// Parse extracts the index from name when its stem is prefix followed by
// decimal digits only.
func Parse(name, prefix string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(stem, prefix) {
		return 0, false
	}
	digits := stem[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Name formats the filename for an index.
func Name(prefix string, n int, ext string) string {
	return prefix + strconv.Itoa(n) + ext
}

// Allocator hands out indices that stay unique under concurrent writers.
// Within a process a per-directory lock serializes the scan; across processes
// the exclusive create decides.
type Allocator struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAllocator creates an Allocator.
func NewAllocator() *Allocator {
	return &Allocator{locks: make(map[string]*sync.Mutex)}
}

// Reserve creates and opens the next free <prefix><N><ext> in dir. The caller
// owns the returned file and must close it.
func (a *Allocator) Reserve(dir, prefix, ext string) (*os.File, int, error) {
	unlock := a.Lock(dir)
	defer unlock()

	next, err := NextIndex(dir, prefix)
	if err != nil {
		return nil, 0, err
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		path := filepath.Join(dir, Name(prefix, next, ext))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, next, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, 0, fmt.Errorf("reserving %s: %w", path, err)
		}
		next++
	}
	return nil, 0, fmt.Errorf("%s%s in %s: %w", prefix, ext, dir, ErrExhausted)
}

// Lock takes the per-directory lock Reserve uses and returns its release.
func (a *Allocator) Lock(dir string) func() {
	key := filepath.Clean(dir)

	a.mu.Lock()
	m, ok := a.locks[key]
	if !ok {
		m = &sync.Mutex{}
		a.locks[key] = m
	}
	a.mu.Unlock()

	m.Lock()
	return m.Unlock
}
