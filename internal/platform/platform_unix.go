//go:build unix

package platform

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ProcessIsAlive uses kill(pid, 0). Signal 0 is never delivered; the kernel
// only performs the existence and permission checks.
func (Native) ProcessIsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.EPERM):
		// Exists, but belongs to someone we may not signal.
		return true
	default:
		// ESRCH and anything unexpected.
		return false
	}
}

// Start runs cmd. Unix has no separate console to open, so detaching means a
// new process group: terminal-generated SIGINT then reaches only the launcher,
// which shuts the companion down itself.
func (Native) Start(cmd *exec.Cmd, newConsole bool) error {
	if newConsole {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	return cmd.Start()
}

// Terminate sends SIGTERM.
func (Native) Terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}
