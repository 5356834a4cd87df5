//go:build unix

package shutdown

import (
	"os"

	"golang.org/x/sys/unix"
)

// Signals returns the signals that request a shutdown: interrupt,
// termination, and hang-up (terminal closed).
func Signals() []os.Signal {
	return []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}
}
