package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

// DefaultFileName is the marker file name used next to the content root.
const DefaultFileName = "viewer.lock"

// guardSuffix names the flock guard file that sits beside the marker while a
// launcher is inside Acquire.
const guardSuffix = ".guard"

// LivenessChecker answers whether a PID names a running process.
// platform.Platform satisfies it.
type LivenessChecker interface {
	ProcessIsAlive(pid int) bool
}

// InstanceLock is the single-instance lock of one launcher run.
type InstanceLock struct {
	path   string
	pid    int
	probe  LivenessChecker
	logger *slog.Logger
	held   bool
}

// New creates an InstanceLock for the marker at path, owned by the current
// process. A nil logger falls back to slog.Default().
func New(path string, probe LivenessChecker, logger *slog.Logger) *InstanceLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstanceLock{
		path:   path,
		pid:    os.Getpid(),
		probe:  probe,
		logger: logger,
	}
}

// Path returns the marker path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Held reports whether this lock currently owns the marker.
func (l *InstanceLock) Held() bool {
	return l.held
}

// Acquire takes ownership of the marker.
//
//  1. absent marker: write own PID
//  2. corrupt marker: remove it, then as 1
//  3. marker naming a live PID: fail with model.ErrLockContention and leave
//     the marker untouched
//  4. marker naming a dead PID: remove the stale marker, then as 1
func (l *InstanceLock) Acquire() error {
	guard := flock.New(l.path + guardSuffix)
	locked, err := guard.TryLock()
	if err != nil {
		return fmt.Errorf("lock guard %s: %w", guard.Path(), err)
	}
	if !locked {
		return fmt.Errorf("another launcher is acquiring %s: %w", l.path, model.ErrLockContention)
	}
	defer func() { _ = guard.Unlock() }()

	marker, err := ReadMarker(l.path)
	if err != nil {
		return err
	}

	switch marker.State {
	case MarkerCorrupt:
		l.logger.Warn("Removing corrupted lock file", "path", l.path)
		l.remove()
	case MarkerOwned:
		if l.probe.ProcessIsAlive(marker.PID) {
			l.logger.Error("Another instance appears to be running", "pid", marker.PID, "path", l.path)
			return fmt.Errorf("pid %d owns %s: %w", marker.PID, l.path, model.ErrLockContention)
		}
		l.logger.Info("Removing stale lock file", "pid", marker.PID, "path", l.path)
		l.remove()
	}

	if err := os.WriteFile(l.path, []byte(strconv.Itoa(l.pid)), 0o644); err != nil { //nolint:gosec // G306 - marker must be readable by other launchers
		return fmt.Errorf("create lock file %s: %w", l.path, err)
	}
	l.held = true
	l.logger.Debug("Lock acquired", "path", l.path, "pid", l.pid)
	return nil
}

// Release deletes the marker if this lock holds it. It never fails: a
// missing marker is fine and any other error is logged as a warning.
// Safe to call multiple times.
func (l *InstanceLock) Release() {
	if !l.held {
		return
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to remove lock file", "path", l.path, "error", err)
	}
	_ = os.Remove(l.path + guardSuffix)
}

func (l *InstanceLock) remove() {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// The write that follows truncates the file anyway.
		l.logger.Warn("Failed to remove old lock file", "path", l.path, "error", err)
	}
}
