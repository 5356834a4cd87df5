//go:build !unix

package shutdown

import (
	"os"
	"syscall"
)

// Signals returns the signals that request a shutdown. There is no hang-up
// signal off unix.
func Signals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
