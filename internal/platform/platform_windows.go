//go:build windows

package platform

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a process that
// has not exited yet (STILL_ACTIVE).
const stillActive = 259

// ProcessIsAlive opens the process with the least privileged query right and
// checks that it has not exited.
func (Native) ProcessIsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Access denied still proves the process exists.
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	return code == stillActive
}

// Start runs cmd, in a console window of its own when newConsole is set.
func (Native) Start(cmd *exec.Cmd, newConsole bool) error {
	if newConsole {
		cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_CONSOLE}
	}
	return cmd.Start()
}

// Terminate kills p. Windows has no portable graceful signal for GUI
// processes, so the grace period in the supervisor collapses to zero.
func (Native) Terminate(p *os.Process) error {
	return p.Kill()
}
