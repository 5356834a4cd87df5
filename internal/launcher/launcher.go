// Package launcher runs one viewer session from lock acquisition to
// cleanup.
//
// A run acquires the instance lock, allocates a port, starts the server,
// prints the VIEWER_URL line, launches the companion and blocks until the
// session ends. Whatever happens after the lock is taken, the server is
// stopped, the companion profile is removed and the lock is released, in
// that order, before Run returns. Panics are included.
package launcher

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"

	"github.com/shinji-kodama/viewer-launcher/internal/cleanup"
	"github.com/shinji-kodama/viewer-launcher/internal/config"
	"github.com/shinji-kodama/viewer-launcher/internal/lock"
	"github.com/shinji-kodama/viewer-launcher/internal/logging"
	"github.com/shinji-kodama/viewer-launcher/internal/model"
	"github.com/shinji-kodama/viewer-launcher/internal/platform"
	"github.com/shinji-kodama/viewer-launcher/internal/port"
	"github.com/shinji-kodama/viewer-launcher/internal/server"
	"github.com/shinji-kodama/viewer-launcher/internal/shutdown"
	"github.com/shinji-kodama/viewer-launcher/internal/supervisor"
)

// Companions launches the companion and waits for the session to end.
// *supervisor.Supervisor implements it.
type Companions interface {
	Launch(url string, newConsole bool) *supervisor.Companion
	Wait(c *supervisor.Companion, healthURL string, tok *shutdown.Token) model.WaitOutcome
}

// Options configures a Launcher.
type Options struct {
	Version     string
	ContentRoot config.ContentRoot
	Settings    config.Settings

	// PreferredPort is the --port value; 0 scans from Settings.DefaultPort.
	PreferredPort int
	NewConsole    bool

	// Stdout receives the machine-readable lines. Defaults to os.Stdout.
	Stdout io.Writer
	Logger *slog.Logger
	Token  *shutdown.Token

	// Platform defaults to platform.Current().
	Platform platform.Platform

	// Companions defaults to a supervisor built from Settings.
	Companions Companions
}

// Launcher runs a single viewer session.
type Launcher struct {
	opts      Options
	logger    *slog.Logger
	allocator *port.Allocator
	remover   *cleanup.Remover
}

// New creates a Launcher, filling unset Options with defaults.
func New(opts Options) *Launcher {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Token == nil {
		opts.Token = shutdown.NewToken()
	}
	if opts.Platform == nil {
		opts.Platform = platform.Current()
	}

	// Every line of a run carries the same short ID.
	logger := opts.Logger.With("run", uuid.NewString()[:8])

	s := opts.Settings
	remover := &cleanup.Remover{
		Retries: s.CleanupRetries,
		Delay:   s.CleanupDelay.Std(),
		Logger:  logger,
	}

	if opts.Companions == nil {
		opts.Companions = supervisor.New(opts.Platform, supervisor.Options{
			Candidates:            append(slices.Clone(s.Companions), supervisor.DefaultCandidates...),
			CompanionPollInterval: s.CompanionPollInterval.Std(),
			TerminateGrace:        s.TerminateGrace.Std(),
			HealthPollInterval:    s.HealthPollInterval.Std(),
			HealthRequestTimeout:  s.HealthRequestTimeout.Std(),
			FallbackTimeout:       s.FallbackTimeout.Std(),
			Remover:               remover,
		}, logger)
	}

	return &Launcher{
		opts:      opts,
		logger:    logger,
		allocator: port.NewAllocator(port.NewScanner()),
		remover:   remover,
	}
}

// Run executes the session and logs its terminal status. A nil error means
// the session finished normally; see model.ExitCodeFor for the mapping of
// errors to exit codes.
func (l *Launcher) Run() error {
	err := l.run()
	if err != nil {
		l.logger.Error("Viewer session failed or was interrupted.", "error", err)
		return err
	}
	l.logger.Info("Viewer session finished successfully.")
	return nil
}

func (l *Launcher) run() (err error) {
	root := l.opts.ContentRoot
	lockPath := root.LockPath()

	l.logger.Info("Viewer launcher",
		"version", l.opts.Version,
		"root", root.Dir,
		"packaged", root.Packaged,
		"lock", lockPath,
		"port", l.opts.PreferredPort,
		"new_console", l.opts.NewConsole,
	)

	lk := lock.New(lockPath, l.opts.Platform, l.logger)
	if err := lk.Acquire(); err != nil {
		return err
	}
	defer lk.Release()

	// Registered after Release so it runs before it: a panic below is
	// converted to an error once cleanup has run, and the lock still goes.
	defer logging.LogPanic("launcher", func(r any) {
		err = fmt.Errorf("unexpected panic: %v", r)
	})

	var (
		srv       *server.Handle
		companion *supervisor.Companion
	)
	defer func() {
		l.logger.Info("Stopping HTTP server")
		if stopErr := srv.Stop(); stopErr != nil {
			l.logger.Warn("Error stopping server", "error", stopErr)
		}
		if companion != nil {
			l.remover.RemoveProfile(companion.ProfileDir)
		}
	}()

	s := l.opts.Settings
	listenPort, err := l.allocator.Allocate(l.opts.PreferredPort, s.DefaultPort, s.PortRange)
	if err != nil {
		return err
	}

	l.logger.Info("Starting HTTP server", "root", root.Dir, "port", listenPort)
	srv, err = server.Start(root.Dir, listenPort, server.Options{
		StartTimeout: s.ServerStartTimeout.Std(),
		Token:        l.opts.Token,
		Logger:       l.logger,
	})
	if err != nil {
		l.logSignal()
		return err
	}

	url := srv.URL(s.Page)
	fmt.Fprintf(l.opts.Stdout, "VIEWER_URL=%s\n", url)
	l.logger.Info("Server started", "url", url)

	if l.opts.Token.Requested() {
		l.logSignal()
		return fmt.Errorf("shutdown requested before companion launch: %w", model.ErrInterrupted)
	}

	companion = l.opts.Companions.Launch(url, l.opts.NewConsole)
	if companion != nil {
		fmt.Fprintf(l.opts.Stdout, "Launched browser: %s (pid=%d) profile=%s\n",
			companion.Path, companion.PID, companion.ProfileDir)
	}

	outcome := l.opts.Companions.Wait(companion, srv.URL(server.HealthPath), l.opts.Token)
	l.logger.Info("Session ended", "outcome", outcome)

	if outcome.Interrupted() || l.opts.Token.Requested() {
		l.logSignal()
		return fmt.Errorf("session ended by %s: %w", outcome, model.ErrInterrupted)
	}
	return nil
}

// logSignal reports the signal that set the token, if any. The signal
// handler itself does no I/O.
func (l *Launcher) logSignal() {
	if !l.opts.Token.Requested() {
		return
	}
	if sig := l.opts.Token.Signal(); sig != nil {
		l.logger.Info("Received signal; requesting shutdown", "signal", sig.String())
		return
	}
	l.logger.Info("Shutdown requested")
}
