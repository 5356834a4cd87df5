// Package platform isolates the operating-system specific calls the
// launcher needs behind one small capability interface: process liveness,
// companion spawning with optional console detachment, graceful termination,
// and the desktop's default "open URL" mechanism.
//
// One implementation per target platform is selected at build time
// (platform_unix.go, platform_windows.go, platform_other.go), which keeps the
// lock and supervisor logic platform-agnostic and lets tests substitute fakes.
package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Platform is the set of OS capabilities the launcher depends on.
type Platform interface {
	// ProcessIsAlive reports whether a process with the given PID exists.
	// It must query existence only and never disturb the other process.
	ProcessIsAlive(pid int) bool

	// Start starts cmd, detaching it into its own console (or process group
	// where consoles do not exist) when newConsole is true.
	Start(cmd *exec.Cmd, newConsole bool) error

	// Terminate asks p to exit. Callers escalate to p.Kill after a grace
	// period if the process is still running.
	Terminate(p *os.Process) error

	// OpenURL hands url to the desktop's default handler without waiting
	// for it.
	OpenURL(url string) error
}

// Native is the Platform implementation for the running operating system.
type Native struct{}

// Current returns the Platform for the running operating system.
func Current() Platform {
	return Native{}
}

// OpenURL launches the default browser with the provided URL using
// platform-specific commands. The helper process is started, not waited on.
func (Native) OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("open url: unsupported platform %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open url on %s: %w", runtime.GOOS, err)
	}
	// Reap the helper in the background so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
