package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/viewer-launcher/internal/lock"
	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

// ContentDirName is the directory, under the working directory or beside the
// executable, that holds the files to serve.
const ContentDirName = "viewer"

// ContentRoot is the resolved directory to serve.
type ContentRoot struct {
	Dir string

	// Packaged is true when the content ships beside the executable rather
	// than being found from the working directory.
	Packaged bool

	// ExeDir is the executable's directory, set whenever it could be
	// determined.
	ExeDir string
}

// ResolveContentRoot locates the content root. An override must be an
// existing directory. Otherwise ./viewer under the working directory is
// tried, then viewer/ beside the executable, which marks the run packaged.
// Failure wraps model.ErrConfiguration.
func ResolveContentRoot(override string) (ContentRoot, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return ContentRoot{}, fmt.Errorf("failed to determine working directory: %v: %w", err, model.ErrConfiguration)
	}

	var exeDir string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeDir = filepath.Dir(exe)
	}

	return resolveContentRoot(override, cwd, exeDir)
}

func resolveContentRoot(override, cwd, exeDir string) (ContentRoot, error) {
	if override != "" {
		dir, err := filepath.Abs(override)
		if err != nil {
			return ContentRoot{}, fmt.Errorf("invalid content root %q: %v: %w", override, err, model.ErrConfiguration)
		}
		if !isDir(dir) {
			return ContentRoot{}, fmt.Errorf("viewer directory not found at %s: %w", dir, model.ErrConfiguration)
		}
		return ContentRoot{Dir: dir, ExeDir: exeDir}, nil
	}

	local := filepath.Join(cwd, ContentDirName)
	if isDir(local) {
		return ContentRoot{Dir: local, ExeDir: exeDir}, nil
	}

	if exeDir != "" {
		bundled := filepath.Join(exeDir, ContentDirName)
		if isDir(bundled) {
			return ContentRoot{Dir: bundled, Packaged: true, ExeDir: exeDir}, nil
		}
	}

	return ContentRoot{}, fmt.Errorf("viewer directory not found at %s: %w", local, model.ErrConfiguration)
}

// LockPath returns where the instance lock marker lives: beside the
// executable for packaged runs, else in the content root's parent.
func (r ContentRoot) LockPath() string {
	if r.Packaged && r.ExeDir != "" {
		return filepath.Join(r.ExeDir, lock.DefaultFileName)
	}
	return filepath.Join(filepath.Dir(r.Dir), lock.DefaultFileName)
}

// SettingsDir is where a settings file is discovered: the same directory
// that holds the lock marker.
func (r ContentRoot) SettingsDir() string {
	return filepath.Dir(r.LockPath())
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
