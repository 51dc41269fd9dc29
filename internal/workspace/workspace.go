package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

// Prefix marks directories owned by the manager.
const Prefix = "txbridge-"

// Manager creates and sweeps invocation workspaces.
type Manager struct {
	baseDir string
}

// NewManager creates a workspace manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// BaseDir returns the directory under which workspaces are created.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Workspace is one invocation's scratch directory.
type Workspace struct {
	path string
}

// Create makes a fresh workspace labelled with label.
func (m *Manager) Create(label string) (*Workspace, error) {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	dir, err := os.MkdirTemp(m.baseDir, Prefix+sanitize(label)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	slog.Debug("Created workspace", logfields.Path(dir))
	return &Workspace{path: dir}, nil
}

// Path returns the workspace root.
func (w *Workspace) Path() string {
	return w.path
}

// Subdir creates and returns a subdirectory within the workspace.
func (w *Workspace) Subdir(name string) (string, error) {
	if w.path == "" {
		return "", fmt.Errorf("workspace already cleaned up")
	}
	subdir := filepath.Join(w.path, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}

// Cleanup removes the workspace directory. It is safe to call twice.
func (w *Workspace) Cleanup() error {
	if w.path == "" {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(w.path))
	w.path = ""
	return nil
}

// Sweep removes workspaces older than maxAge and returns how many it removed.
// Entries without the manager prefix are left alone.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list workspaces: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(m.baseDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove stale workspace", logfields.Path(dir), logfields.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Swept stale workspaces", logfields.Count(removed))
	}
	return removed, nil
}

func sanitize(label string) string {
	if label == "" {
		return "job"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
}
