//go:build !unix && !windows

package platform

import (
	"os"
	"os/exec"
)

// ProcessIsAlive cannot query other processes here and reports false, which
// lets a stale marker be reclaimed rather than blocking every run forever.
func (Native) ProcessIsAlive(pid int) bool {
	return false
}

// Start ignores newConsole.
func (Native) Start(cmd *exec.Cmd, _ bool) error {
	return cmd.Start()
}

// Terminate kills p.
func (Native) Terminate(p *os.Process) error {
	return p.Kill()
}
