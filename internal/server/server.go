// Package server runs the launcher's loopback HTTP server: a fixed health
// endpoint plus static files from the content root.
//
// The accept loop runs on its own goroutine. Start blocks until the bound
// port actually accepts a TCP connection (or a startup timeout elapses), so
// the URL printed afterwards is always reachable. Stop is idempotent and
// nil-safe, which lets every exit path of a run call it unconditionally.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
	"github.com/shinji-kodama/viewer-launcher/internal/port"
	"github.com/shinji-kodama/viewer-launcher/internal/shutdown"
)

const (
	// DefaultStartTimeout bounds how long Start waits for the listener to
	// accept its first connection.
	DefaultStartTimeout = 3 * time.Second

	// readyPollInterval is the pause between readiness probes.
	readyPollInterval = 50 * time.Millisecond

	// readyDialTimeout bounds a single readiness probe.
	readyDialTimeout = 500 * time.Millisecond

	// shutdownTimeout bounds how long Stop waits for in-flight requests.
	shutdownTimeout = 2 * time.Second
)

// probeConn dials addr once. Tests replace it to simulate a listener that
// never becomes ready.
var probeConn = func(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, readyDialTimeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Options tunes Start. The zero value is usable.
type Options struct {
	// StartTimeout defaults to DefaultStartTimeout.
	StartTimeout time.Duration

	// Token aborts the readiness wait when shutdown is requested. Optional.
	Token *shutdown.Token

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handle is a running (or partially started) server.
type Handle struct {
	addr   string
	port   int
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger

	done chan struct{} // closed when the accept loop returns

	mu       sync.Mutex
	running  bool
	stopped  bool
	serveErr error
}

// Start binds 127.0.0.1:listenPort and serves contentRoot on a background
// goroutine.
//
// It returns an error wrapping model.ErrConfiguration if contentRoot is not a
// directory, model.ErrServerStartTimeout if the listener never accepted a
// probe connection in time, and model.ErrInterrupted if opts.Token fired
// while waiting. In the last two cases the partially started Handle is
// returned as well so the caller can Stop it.
func Start(contentRoot string, listenPort int, opts Options) (*Handle, error) {
	info, err := os.Stat(contentRoot)
	if err != nil {
		return nil, fmt.Errorf("content root %s: %v: %w", contentRoot, err, model.ErrConfiguration)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory: %w", contentRoot, model.ErrConfiguration)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}

	addr := net.JoinHostPort(port.DefaultHost, strconv.Itoa(listenPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	h := &Handle{
		addr:   addr,
		port:   listenPort,
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
		srv: &http.Server{
			Handler:           withRequestLog(NewHandler(contentRoot), logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		running: true,
	}

	go h.serve()

	if err := h.waitReady(timeout, opts.Token); err != nil {
		return h, err
	}
	logger.Debug("Server ready", "addr", addr, "root", contentRoot)
	return h, nil
}

func (h *Handle) serve() {
	defer close(h.done)

	err := h.srv.Serve(h.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Server accept loop failed", "addr", h.addr, "error", err)
	}

	h.mu.Lock()
	h.running = false
	h.serveErr = err
	h.mu.Unlock()
}

// waitReady bridges the gap between launching the accept goroutine and the
// port answering connections.
func (h *Handle) waitReady(timeout time.Duration, tok *shutdown.Token) error {
	deadline := time.Now().Add(timeout)
	for {
		if tok != nil && tok.Requested() {
			return fmt.Errorf("shutdown requested during server startup: %w", model.ErrInterrupted)
		}
		if err := probeConn(h.addr); err == nil {
			return nil
		}

		select {
		case <-h.done:
			return fmt.Errorf("server on %s exited during startup: %w", h.addr, model.ErrServerStartTimeout)
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%s not accepting after %s: %w", h.addr, timeout, model.ErrServerStartTimeout)
		}
		if tok != nil {
			tok.Sleep(readyPollInterval)
		} else {
			time.Sleep(readyPollInterval)
		}
	}
}

// Stop halts the accept loop, then releases the listener. It is safe to call
// multiple times, on a nil Handle, and on a Handle whose Start failed.
func (h *Handle) Stop() error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown closes the listener, which makes Serve return, then drains
	// in-flight requests until ctx expires.
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("Graceful server shutdown timed out; closing connections", "addr", h.addr, "error", err)
		if cerr := h.srv.Close(); cerr != nil {
			return fmt.Errorf("close server on %s: %w", h.addr, cerr)
		}
	}
	<-h.done

	// Serve owns the listener, but a Handle whose Serve never ran still
	// needs it closed. net.ErrClosed just means Shutdown got there first.
	if err := h.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener on %s: %w", h.addr, err)
	}
	return nil
}

// Running reports whether the accept loop is still serving.
func (h *Handle) Running() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Port returns the bound port.
func (h *Handle) Port() int {
	return h.port
}

// Addr returns host:port of the listener.
func (h *Handle) Addr() string {
	return h.addr
}

// URL returns the absolute http URL for path on this server.
func (h *Handle) URL(path string) string {
	if len(path) == 0 || path[0] != '/' {
		path = "/" + path
	}
	return "http://" + h.addr + path
}
