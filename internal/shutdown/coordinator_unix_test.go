//go:build unix

package shutdown

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSignals_IncludeHangup(t *testing.T) {
	assert.Contains(t, Signals(), os.Signal(unix.SIGHUP))
	assert.Contains(t, Signals(), os.Signal(unix.SIGTERM))
	assert.Contains(t, Signals(), os.Signal(unix.SIGINT))
}

// TestInstall_SignalSetsToken delivers a real SIGTERM to the test process.
// With the coordinator installed the signal is caught instead of killing us.
func TestInstall_SignalSetsToken(t *testing.T) {
	tok := NewToken()
	c := Install(tok)
	defer c.Stop()

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGTERM))

	assert.Eventually(t, tok.Requested, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, os.Signal(unix.SIGTERM), tok.Signal())
}

func TestInstall_HangupSetsToken(t *testing.T) {
	tok := NewToken()
	c := Install(tok)
	defer c.Stop()

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGHUP))

	assert.Eventually(t, tok.Requested, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, os.Signal(unix.SIGHUP), tok.Signal())
}

func TestCoordinator_StopIsIdempotent(t *testing.T) {
	c := Install(NewToken())
	c.Stop()
	c.Stop()
}
