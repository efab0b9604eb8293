// Package tempfiles allocates working files for derived rasters and frames.
//
// Every crop, blend, and render operation in this module writes its output
// to a fresh file rather than mutating an input in place. This package is
// the collaborator that hands out those paths: a process-scoped working
// directory holding uniquely named, suffix-qualified files.
//
// Cleanup is explicit. Callers that batch large numbers of intermediate
// rasters (the animator, between indicators) call Cleanup with a pattern;
// RemoveAll drops the whole directory at process exit.
package tempfiles

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Manager allocates unique file paths inside a working directory.
// The zero value is not usable; create one with NewManager.
type Manager struct {
	dir string
}

// NewManager creates a working directory under the system temp dir.
func NewManager() (*Manager, error) {
	dir, err := os.MkdirTemp("", "gcbmanimation-")
	if err != nil {
		return nil, err
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the manager's working directory.
func (m *Manager) Dir() string {
	return m.dir
}

// New returns a fresh unique path with the given suffix, e.g. ".asc" or
// ".png". The file is not created; callers write it themselves.
func (m *Manager) New(suffix string) string {
	return filepath.Join(m.dir, uuid.NewString()+suffix)
}

// Cleanup removes working files matching the glob pattern, e.g. "*.asc".
// Files that cannot be removed are skipped; rasters still held open by a
// caller are not this package's concern.
func (m *Manager) Cleanup(pattern string) {
	matches, err := filepath.Glob(filepath.Join(m.dir, pattern))
	if err != nil {
		return
	}
	for _, match := range matches {
		_ = os.Remove(match)
	}
}

// RemoveAll deletes the working directory and everything in it.
func (m *Manager) RemoveAll() error {
	return os.RemoveAll(m.dir)
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager, creating it on first use.
func Default() *Manager {
	defaultOnce.Do(func() {
		m, err := NewManager()
		if err != nil {
			// Fall back to the bare system temp dir rather than failing
			// here; the first write will surface the real error.
			m = &Manager{dir: os.TempDir()}
		}
		defaultManager = m
	})
	return defaultManager
}

// New returns a fresh unique path from the process-wide manager.
func New(suffix string) string {
	return Default().New(suffix)
}

// Cleanup removes matching files from the process-wide manager.
func Cleanup(pattern string) {
	Default().Cleanup(pattern)
}
