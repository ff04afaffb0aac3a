package mocks

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/user/vidout/pkg/ports"
)

// FileSystem is an in-memory ports.FileSystem. Writes can be made to fail
// after a number of successes to simulate a full disk.
type FileSystem struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	writes int

	failAfter int // -1 never fails
	failErr   error
}

// NewFileSystem creates an empty mock FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:     make(map[string][]byte),
		dirs:      make(map[string]bool),
		failAfter: -1,
	}
}

// FailWrites makes every WriteFile after the first n successful ones return err.
func (m *FileSystem) FailWrites(err error, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
	m.failAfter = n
}

func (m *FileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.files[filepath.Clean(path)]; ok {
		return slices.Clone(data), nil
	}
	return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
}

func (m *FileSystem) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.writes >= m.failAfter {
		return m.failErr
	}
	path = filepath.Clean(path)
	m.files[path] = slices.Clone(data)
	m.markDirs(filepath.Dir(path))
	m.writes++
	return nil
}

func (m *FileSystem) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markDirs(filepath.Clean(path))
	return nil
}

// markDirs records dir and its ancestors. mu must be held.
func (m *FileSystem) markDirs(dir string) {
	for dir != "." && dir != string(filepath.Separator) && !m.dirs[dir] {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (m *FileSystem) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	_, isFile := m.files[path]
	return isFile || m.dirs[path], nil
}

// ListDir returns the sorted names of the non-hidden files stored directly under dir.
func (m *FileSystem) ListDir(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	if !m.dirs[dir] {
		return nil, fmt.Errorf("list %s: %w", dir, fs.ErrNotExist)
	}
	var names []string
	for p := range m.files {
		if filepath.Dir(p) == dir && !strings.HasPrefix(filepath.Base(p), ".") {
			names = append(names, filepath.Base(p))
		}
	}
	slices.Sort(names)
	return names, nil
}

// File returns the contents of a file (for test verification).
func (m *FileSystem) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(path)]
	return data, ok
}

// Writes returns the number of successful WriteFile calls.
func (m *FileSystem) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var _ ports.FileSystem = (*FileSystem)(nil)
