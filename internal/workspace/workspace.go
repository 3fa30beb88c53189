package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// LockFileName lives in the build directory.
const LockFileName = ".tbonebuild.lock"

// Manager owns the build and tools directories of one project root.
type Manager struct {
	root     string
	buildDir string
	toolsDir string
	lockPath string
	locked   bool
}

// NewManager creates a manager for root with the given directory names,
// relative to root.
func NewManager(root, buildDir, toolsDir string) *Manager {
	if root == "" {
		root = "."
	}
	return &Manager{
		root:     root,
		buildDir: filepath.Join(root, buildDir),
		toolsDir: filepath.Join(root, toolsDir),
		lockPath: filepath.Join(root, buildDir, LockFileName),
	}
}

// Create makes sure the build and tools directories exist.
func (m *Manager) Create() error {
	for _, dir := range []string{m.buildDir, m.toolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.FileSystemError("failed to create workspace directory").WithCause(err).
				WithContext("path", dir).
				Build()
		}
	}
	slog.Debug("Workspace ready", logfields.Path(m.root))
	return nil
}

// Acquire creates the workspace and takes the build lock.
func (m *Manager) Acquire() error {
	if err := m.Create(); err != nil {
		return err
	}
	err := m.tryLock()
	if errors.Is(err, os.ErrExist) && m.breakStaleLock() {
		err = m.tryLock()
	}
	if errors.Is(err, os.ErrExist) {
		owner, _ := os.ReadFile(m.lockPath)
		return ferrors.RuntimeError("another build is running in this directory").
			WithContext("lock", m.lockPath).
			WithContext("owner_pid", strings.TrimSpace(string(owner))).
			Build()
	}
	if err != nil {
		return ferrors.FileSystemError("failed to create lock file").WithCause(err).
			WithContext("path", m.lockPath).
			Build()
	}
	m.locked = true
	slog.Debug("Acquired build lock", logfields.Path(m.lockPath))
	return nil
}

func (m *Manager) tryLock() error {
	f, err := os.OpenFile(m.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(f, "%d\n", os.Getpid())
	return errors.Join(writeErr, f.Close())
}

// breakStaleLock removes a lock whose owner process is gone.
func (m *Manager) breakStaleLock() bool {
	data, err := os.ReadFile(m.lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || processAlive(pid) {
		return false
	}
	slog.Warn("Removing stale build lock", logfields.Path(m.lockPath), slog.Int("owner_pid", pid))
	return os.Remove(m.lockPath) == nil
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Release drops the lock. It is safe to call when the lock is not held.
func (m *Manager) Release() error {
	if !m.locked {
		return nil
	}
	m.locked = false
	if err := os.Remove(m.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	slog.Debug("Released build lock", logfields.Path(m.lockPath))
	return nil
}

// GetPath returns the project root.
func (m *Manager) GetPath() string { return m.root }

// BuildDir returns the build directory.
func (m *Manager) BuildDir() string { return m.buildDir }

// ToolsDir returns the tools directory.
func (m *Manager) ToolsDir() string { return m.toolsDir }

// LockPath returns the lock file location.
func (m *Manager) LockPath() string { return m.lockPath }
