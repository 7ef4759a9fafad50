// Package scratch manages per-request temporary files.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/guiyumin/sentinel-whisper-server/internal/metrics"
)

const filePrefix = "sw-"

// Manager allocates uniquely named files in one directory and removes them.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// New creates a Manager rooted at dir, or the system temp directory when dir is empty.
func New(dir string, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		dir:    dir,
		logger: logger.With("component", "scratch"),
	}, nil
}

// Dir returns the scratch directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreatePath creates an empty file with a fresh name ending in suffix.
func (m *Manager) CreatePath(suffix string) (string, error) {
	f, err := m.create(suffix)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		m.Cleanup(path)
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}
	return path, nil
}

// Materialize copies r to a new scratch file and returns its path.
// A partially written file is removed on failure.
func (m *Manager) Materialize(r io.Reader, suffix string) (string, error) {
	f, err := m.create(suffix)
	if err != nil {
		return "", err
	}
	path := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		m.Cleanup(path)
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		m.Cleanup(path)
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}
	return path, nil
}

// Cleanup removes each path. Empty and missing paths are skipped; other
// failures are logged and counted but never returned.
func (m *Manager) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		metrics.ScratchCleanupFailures.Inc()
		m.logger.Warn("failed to remove scratch file", "path", path, "error", err)
	}
}

func (m *Manager) create(suffix string) (*os.File, error) {
	path := filepath.Join(m.dir, filePrefix+uuid.NewString()+suffix)
	// O_EXCL keeps two requests from ever sharing a path
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	return f, nil
}
