// Package supervisor starts the companion viewer for a run and waits for the
// session to end.
//
// There are two paths. When a Chromium-family browser is installed it is
// spawned in app mode against a throwaway profile directory and the session
// lasts as long as that process. Otherwise the URL is handed to the desktop's
// default opener and, since that process cannot be observed, the session is
// taken to last while the server's health endpoint keeps answering.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/shinji-kodama/viewer-launcher/internal/cleanup"
	"github.com/shinji-kodama/viewer-launcher/internal/model"
	"github.com/shinji-kodama/viewer-launcher/internal/platform"
	"github.com/shinji-kodama/viewer-launcher/internal/shutdown"
)

// ProfilePrefix names temporary profile directories so leftovers are
// recognizable.
const ProfilePrefix = "viewer-profile-"

// DefaultCandidates are the companion install locations probed, in order.
var DefaultCandidates = []string{
	`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
	`C:\Program Files\Chromium\Application\chrome.exe`,
	"/usr/bin/google-chrome",
	"/usr/bin/chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
}

// Options configures a Supervisor. Zero durations take the defaults below.
type Options struct {
	// Candidates replaces DefaultCandidates when non-nil.
	Candidates []string

	// TempDir is where profile directories are created; empty means the
	// system temporary directory.
	TempDir string

	CompanionPollInterval time.Duration // default 100ms
	TerminateGrace        time.Duration // default 5s
	HealthPollInterval    time.Duration // default 500ms
	HealthRequestTimeout  time.Duration // default 1s
	FallbackTimeout       time.Duration // default 300s

	// Remover deletes a profile whose companion never started. Defaults to
	// cleanup.NewRemover.
	Remover *cleanup.Remover
}

func (o *Options) applyDefaults(logger *slog.Logger) {
	if o.Candidates == nil {
		o.Candidates = DefaultCandidates
	}
	setDefault(&o.CompanionPollInterval, 100*time.Millisecond)
	setDefault(&o.TerminateGrace, 5*time.Second)
	setDefault(&o.HealthPollInterval, 500*time.Millisecond)
	setDefault(&o.HealthRequestTimeout, time.Second)
	setDefault(&o.FallbackTimeout, 300*time.Second)
	if o.Remover == nil {
		o.Remover = cleanup.NewRemover(logger)
	}
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d <= 0 {
		*d = v
	}
}

// Supervisor launches and watches one companion per run.
type Supervisor struct {
	platform platform.Platform
	opts     Options
	client   *http.Client
	logger   *slog.Logger
}

// New creates a Supervisor. A nil logger falls back to slog.Default().
func New(p platform.Platform, opts Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults(logger)
	return &Supervisor{
		platform: p,
		opts:     opts,
		client:   &http.Client{Timeout: opts.HealthRequestTimeout},
		logger:   logger,
	}
}

// Companion is a spawned companion process and its profile directory.
type Companion struct {
	Path       string
	PID        int
	ProfileDir string

	cmd  *exec.Cmd
	done chan struct{}
}

// Done is closed once the companion process has exited and been reaped.
func (c *Companion) Done() <-chan struct{} {
	return c.done
}

// Exited reports, without blocking, whether the process has exited.
func (c *Companion) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Args returns the companion command line for url and profile.
func Args(url, profile string) []string {
	return []string{
		"--app=" + url,
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-extensions",
	}
}

// Find returns the first candidate that exists as a file.
func (s *Supervisor) Find() (string, bool) {
	for _, candidate := range s.opts.Candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Launch starts a companion against url. It returns nil when the fallback
// path was taken, either because no companion is installed or because it
// could not be started; the URL has then been passed to the default opener.
func (s *Supervisor) Launch(url string, newConsole bool) *Companion {
	exe, ok := s.Find()
	if !ok {
		s.logger.Info("No companion browser found; using system default browser")
		s.openDefault(url)
		return nil
	}

	profile, err := os.MkdirTemp(s.opts.TempDir, ProfilePrefix)
	if err != nil {
		s.logger.Warn("Failed to create companion profile directory",
			"error", fmt.Errorf("%w: %v", model.ErrCompanionLaunch, err))
		s.openDefault(url)
		return nil
	}

	cmd := exec.Command(exe, Args(url, profile)...)
	if err := s.platform.Start(cmd, newConsole); err != nil {
		s.logger.Warn("Failed to launch browser executable",
			"path", exe,
			"error", fmt.Errorf("%w: %v", model.ErrCompanionLaunch, err))
		s.opts.Remover.RemoveProfile(profile)
		s.openDefault(url)
		return nil
	}

	c := &Companion{
		Path:       exe,
		PID:        cmd.Process.Pid,
		ProfileDir: profile,
		cmd:        cmd,
		done:       make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(c.done)
	}()

	s.logger.Debug("Companion started", "path", exe, "pid", c.PID, "profile", profile, "new_console", newConsole)
	return c
}

func (s *Supervisor) openDefault(url string) {
	if err := s.platform.OpenURL(url); err != nil {
		// The user can still open the printed URL by hand; health polling
		// proceeds either way.
		s.logger.Warn("Fallback open failed", "url", url, "error", err)
		return
	}
	s.logger.Info("Opened in system default browser (fallback)", "url", url)
}

// Wait blocks until the session ends. With a companion that is when the
// process exits; without one (c == nil) it is when healthURL stops answering
// or the fallback ceiling passes. A shutdown request ends either wait, and a
// still-running companion is terminated before Wait returns.
func (s *Supervisor) Wait(c *Companion, healthURL string, tok *shutdown.Token) model.WaitOutcome {
	if c != nil {
		return s.waitCompanion(c, tok)
	}
	return s.pollHealth(healthURL, tok)
}

func (s *Supervisor) waitCompanion(c *Companion, tok *shutdown.Token) model.WaitOutcome {
	s.logger.Info("Waiting for browser process to exit", "pid", c.PID)
	for {
		if tok.Requested() {
			s.logger.Info("Shutdown requested; terminating browser process", "pid", c.PID)
			s.terminate(c)
			return model.OutcomeShutdownRequested
		}
		if c.Exited() {
			s.logger.Info("Browser process exited", "pid", c.PID)
			return model.OutcomeCompanionExited
		}
		tok.Sleep(s.opts.CompanionPollInterval)
	}
}

// terminate asks the companion to exit and kills it if it has not done so
// within the grace period.
func (s *Supervisor) terminate(c *Companion) {
	if c.Exited() {
		return
	}
	if err := s.platform.Terminate(c.cmd.Process); err != nil {
		s.logger.Debug("Terminate request failed", "pid", c.PID, "error", err)
	}

	grace := time.NewTimer(s.opts.TerminateGrace)
	defer grace.Stop()
	select {
	case <-c.done:
		return
	case <-grace.C:
	}

	s.logger.Warn("Browser did not exit after terminate; killing", "pid", c.PID, "grace", s.opts.TerminateGrace)
	if err := c.cmd.Process.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return
		}
		s.logger.Warn("Failed to kill browser process", "pid", c.PID, "error", err)
		return
	}

	// Bounded so a process stuck in the kernel cannot hold up exit.
	reap := time.NewTimer(s.opts.TerminateGrace)
	defer reap.Stop()
	select {
	case <-c.done:
	case <-reap.C:
		s.logger.Warn("Browser process not reaped after kill", "pid", c.PID)
	}
}

func (s *Supervisor) pollHealth(healthURL string, tok *shutdown.Token) model.WaitOutcome {
	s.logger.Info("Fallback: polling health until unreachable or timeout",
		"url", healthURL, "timeout", s.opts.FallbackTimeout)

	deadline := time.Now().Add(s.opts.FallbackTimeout)
	for {
		if tok.Requested() {
			s.logger.Info("Shutdown requested during fallback polling")
			return model.OutcomeShutdownRequested
		}
		if !time.Now().Before(deadline) {
			s.logger.Info("Fallback poll timed out; continuing to shutdown")
			return model.OutcomeTimedOut
		}
		if err := s.checkHealth(healthURL); err != nil {
			s.logger.Info("Detected server unreachable; assuming browser/tab closed", "error", err)
			return model.OutcomeHealthLost
		}
		tok.Sleep(s.opts.HealthPollInterval)
	}
}

func (s *Supervisor) checkHealth(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.HealthRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health returned %s", resp.Status)
	}
	return nil
}
