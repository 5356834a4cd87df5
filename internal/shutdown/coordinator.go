package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

// Coordinator routes process signals into a Token.
type Coordinator struct {
	sigCh chan os.Signal
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// Install registers for the platform's shutdown signals (see Signals) and
// triggers tok when any of them arrives. The receiving goroutine does
// nothing else: logging and resource work happen in the main flow once it
// notices the token.
func Install(tok *Token) *Coordinator {
	c := &Coordinator{
		sigCh: make(chan os.Signal, 1),
		stop:  make(chan struct{}),
	}
	signal.Notify(c.sigCh, Signals()...)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case sig := <-c.sigCh:
				tok.Trigger(sig)
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Stop unregisters the handlers and waits for the receiving goroutine.
// Safe to call more than once.
func (c *Coordinator) Stop() {
	c.once.Do(func() {
		signal.Stop(c.sigCh)
		close(c.stop)
		c.wg.Wait()
	})
}
