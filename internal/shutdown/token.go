// Package shutdown carries the run-wide cancellation flag and the signal
// handlers that set it.
//
// A Token is created once at run start and passed by pointer to every
// component that waits or polls. Signal delivery sets it; nothing ever
// resets it. Loops sample it at least once per iteration, so the latency to
// notice a shutdown is bounded by the loop's poll interval.
package shutdown

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Token is a set-once cancellation flag.
type Token struct {
	requested atomic.Bool
	sig       atomic.Value // os.Signal
	once      sync.Once
	done      chan struct{}
}

// NewToken returns an unset Token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Trigger sets the flag. sig records what caused it and may be nil for a
// programmatic request. Only the first call has any effect.
func (t *Token) Trigger(sig os.Signal) {
	t.once.Do(func() {
		if sig != nil {
			t.sig.Store(sig)
		}
		t.requested.Store(true)
		close(t.done)
	})
}

// Requested reports whether shutdown has been requested.
func (t *Token) Requested() bool {
	return t.requested.Load()
}

// Done returns a channel closed when shutdown is requested.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Signal returns the signal that triggered the token, or nil.
func (t *Token) Signal() os.Signal {
	sig, _ := t.sig.Load().(os.Signal)
	return sig
}

// Sleep pauses for d or until shutdown is requested, whichever comes first.
// It returns true if shutdown was requested.
func (t *Token) Sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-t.done:
		return true
	case <-timer.C:
		return t.Requested()
	}
}
