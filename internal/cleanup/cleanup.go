// Package cleanup releases the ephemeral filesystem state of a launcher run.
//
// Removal is best-effort and retry-bounded: the companion may still be
// flushing files into its profile directory for a moment after it exits
// (and on Windows open handles block deletion), so a failed attempt is
// retried after a short delay. Exhausting the retries is logged, never
// returned, because cleanup failure must not turn a successful run into a
// failed one.
package cleanup

import (
	"log/slog"
	"os"
	"time"
)

const (
	// DefaultRetries is the number of removal attempts.
	DefaultRetries = 3

	// DefaultDelay is the pause between attempts.
	DefaultDelay = 200 * time.Millisecond
)

// Remover deletes profile directories.
type Remover struct {
	Retries int
	Delay   time.Duration
	Logger  *slog.Logger

	// removeAll is os.RemoveAll outside of tests.
	removeAll func(string) error
}

// NewRemover returns a Remover with the default retry policy.
func NewRemover(logger *slog.Logger) *Remover {
	return &Remover{
		Retries: DefaultRetries,
		Delay:   DefaultDelay,
		Logger:  logger,
	}
}

// RemoveProfile recursively removes dir. An empty dir means no profile was
// created and is a no-op. It reports whether the directory is gone.
func (r *Remover) RemoveProfile(dir string) bool {
	if dir == "" {
		return true
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removeAll := r.removeAll
	if removeAll == nil {
		removeAll = os.RemoveAll
	}
	retries := r.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		// RemoveAll treats an already-missing directory as success.
		if lastErr = removeAll(dir); lastErr == nil {
			logger.Debug("Removed profile directory", "dir", dir, "attempt", attempt)
			return true
		}
		if attempt < retries {
			time.Sleep(r.Delay)
		}
	}

	logger.Warn("Could not remove profile directory", "dir", dir, "attempts", retries, "error", lastErr)
	return false
}
