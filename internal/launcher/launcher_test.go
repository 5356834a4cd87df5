package launcher

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/viewer-launcher/internal/config"
	"github.com/shinji-kodama/viewer-launcher/internal/model"
	"github.com/shinji-kodama/viewer-launcher/internal/platform"
	"github.com/shinji-kodama/viewer-launcher/internal/port"
	"github.com/shinji-kodama/viewer-launcher/internal/shutdown"
	"github.com/shinji-kodama/viewer-launcher/internal/supervisor"
)

// fakeCompanions stands in for the supervisor. launch and wait default to
// the fallback path ending with the health endpoint still reachable.
type fakeCompanions struct {
	mu        sync.Mutex
	launched  []string
	healthURL string

	launch func(url string) *supervisor.Companion
	wait   func(c *supervisor.Companion, healthURL string, tok *shutdown.Token) model.WaitOutcome
}

func (f *fakeCompanions) Launch(url string, _ bool) *supervisor.Companion {
	f.mu.Lock()
	f.launched = append(f.launched, url)
	f.mu.Unlock()
	if f.launch != nil {
		return f.launch(url)
	}
	return nil
}

func (f *fakeCompanions) Wait(c *supervisor.Companion, healthURL string, tok *shutdown.Token) model.WaitOutcome {
	f.mu.Lock()
	f.healthURL = healthURL
	f.mu.Unlock()
	if f.wait != nil {
		return f.wait(c, healthURL, tok)
	}
	return model.OutcomeHealthLost
}

func (f *fakeCompanions) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launched)
}

type harness struct {
	root   config.ContentRoot
	stdout *bytes.Buffer
	logs   *bytes.Buffer
	tok    *shutdown.Token
	comps  *fakeCompanions
	opts   Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "viewer")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPage), []byte("<html></html>"), 0o644))

	start, err := port.NewScanner().FindAvailablePort(43000, 49000)
	require.NoError(t, err)

	settings := config.Defaults()
	settings.DefaultPort = start
	settings.PortRange = 50

	h := &harness{
		root:   config.ContentRoot{Dir: dir},
		stdout: &bytes.Buffer{},
		logs:   &bytes.Buffer{},
		tok:    shutdown.NewToken(),
		comps:  &fakeCompanions{},
	}
	h.opts = Options{
		Version:     "test",
		ContentRoot: h.root,
		Settings:    settings,
		NewConsole:  true,
		Stdout:      h.stdout,
		Logger:      slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Token:       h.tok,
		Platform:    platform.Current(),
		Companions:  h.comps,
	}
	return h
}

func (h *harness) run() error {
	return New(h.opts).Run()
}

func viewerURL(t *testing.T, stdout string) string {
	t.Helper()
	for _, line := range strings.Split(stdout, "\n") {
		if rest, ok := strings.CutPrefix(line, "VIEWER_URL="); ok {
			return rest
		}
	}
	t.Fatalf("no VIEWER_URL line in %q", stdout)
	return ""
}

// TestRun_FallbackHealthLost: no companion installed, default-open succeeds,
// the session ends when health stops answering.
func TestRun_FallbackHealthLost(t *testing.T) {
	h := newHarness(t)
	h.comps.wait = func(_ *supervisor.Companion, healthURL string, _ *shutdown.Token) model.WaitOutcome {
		// The server must be up while the session is waited on.
		resp, err := http.Get(healthURL)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, `{"status":"ok"}`, string(body))
		return model.OutcomeHealthLost
	}

	require.NoError(t, h.run())

	url := viewerURL(t, h.stdout.String())
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(url, "/timeline_viewer.html"))
	assert.Equal(t, 1, strings.Count(h.stdout.String(), "VIEWER_URL="))
	assert.NotContains(t, h.stdout.String(), "Launched browser")
	assert.Equal(t, []string{url}, h.comps.launched)
	assert.True(t, strings.HasSuffix(h.comps.healthURL, "/health"))

	assert.NoFileExists(t, h.root.LockPath())
	assert.Contains(t, h.logs.String(), "Viewer session finished successfully.")
	assert.Contains(t, h.logs.String(), "run=")

	// The server is gone once Run returns.
	_, err := http.Get(h.comps.healthURL)
	assert.Error(t, err)
}

func TestRun_FallbackTimedOutIsSuccess(t *testing.T) {
	h := newHarness(t)
	h.comps.wait = func(*supervisor.Companion, string, *shutdown.Token) model.WaitOutcome {
		return model.OutcomeTimedOut
	}

	assert.NoError(t, h.run())
}

// TestRun_LockHeldByLiveProcess: a live owner keeps the marker and the run
// touches nothing.
func TestRun_LockHeldByLiveProcess(t *testing.T) {
	h := newHarness(t)
	owner := strconv.Itoa(os.Getppid())
	require.NoError(t, os.WriteFile(h.root.LockPath(), []byte(owner), 0o644))

	err := h.run()
	require.ErrorIs(t, err, model.ErrLockContention)
	assert.Equal(t, model.ExitFailure, model.ExitCodeFor(err))

	data, readErr := os.ReadFile(h.root.LockPath())
	require.NoError(t, readErr)
	assert.Equal(t, owner, string(data))
	assert.Empty(t, h.stdout.String())
	assert.Zero(t, h.comps.launchCount())
	assert.Contains(t, h.logs.String(), "Viewer session failed or was interrupted.")
}

func TestRun_StaleLockRecovered(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.root.LockPath(), []byte("999999999"), 0o644))

	require.NoError(t, h.run())
	assert.NoFileExists(t, h.root.LockPath())
}

// TestRun_ShutdownDuringWait: a signal arrives while the companion runs. The
// run is interrupted and every resource is released.
func TestRun_ShutdownDuringWait(t *testing.T) {
	h := newHarness(t)
	profile, err := os.MkdirTemp(t.TempDir(), supervisor.ProfilePrefix)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(profile, "Local State"), []byte("{}"), 0o600))

	h.comps.launch = func(string) *supervisor.Companion {
		return &supervisor.Companion{Path: "/usr/bin/google-chrome", PID: 4242, ProfileDir: profile}
	}
	h.comps.wait = func(_ *supervisor.Companion, _ string, tok *shutdown.Token) model.WaitOutcome {
		assert.FileExists(t, h.root.LockPath())
		tok.Trigger(syscall.SIGTERM)
		return model.OutcomeShutdownRequested
	}

	err = h.run()
	require.ErrorIs(t, err, model.ErrInterrupted)
	assert.Equal(t, model.ExitFailure, model.ExitCodeFor(err))

	assert.Contains(t, h.stdout.String(),
		"Launched browser: /usr/bin/google-chrome (pid=4242) profile="+profile+"\n")
	assert.NoDirExists(t, profile)
	assert.NoFileExists(t, h.root.LockPath())
	assert.Contains(t, h.logs.String(), "Received signal")
}

// TestRun_PreferredPortBusy: the preferred port is taken, nothing else is
// tried, and the lock is released.
func TestRun_PreferredPortBusy(t *testing.T) {
	h := newHarness(t)
	ln, err := net.Listen("tcp", net.JoinHostPort(port.DefaultHost, "0"))
	require.NoError(t, err)
	defer ln.Close()
	h.opts.PreferredPort = ln.Addr().(*net.TCPAddr).Port

	err = h.run()
	require.ErrorIs(t, err, model.ErrPortUnavailable)
	assert.Equal(t, model.ExitFailure, model.ExitCodeFor(err))
	assert.Empty(t, h.stdout.String())
	assert.Zero(t, h.comps.launchCount())
	assert.NoFileExists(t, h.root.LockPath())
}

func TestRun_PreferredPortUsed(t *testing.T) {
	h := newHarness(t)
	p, err := port.NewScanner().FindAvailablePort(43000, 49000)
	require.NoError(t, err)
	h.opts.PreferredPort = p

	require.NoError(t, h.run())
	assert.Contains(t, viewerURL(t, h.stdout.String()), ":"+strconv.Itoa(p)+"/")
}

// TestRun_ShutdownBeforeStart: the token is already set, so the server start
// is abandoned and no companion is launched.
func TestRun_ShutdownBeforeStart(t *testing.T) {
	h := newHarness(t)
	h.tok.Trigger(syscall.SIGINT)

	err := h.run()
	require.ErrorIs(t, err, model.ErrInterrupted)
	assert.Zero(t, h.comps.launchCount())
	assert.NoFileExists(t, h.root.LockPath())
}

// TestRun_PanicStillCleansUp turns a panic inside the session into an error
// after the server is stopped and the lock released.
func TestRun_PanicStillCleansUp(t *testing.T) {
	h := newHarness(t)
	h.comps.launch = func(string) *supervisor.Companion {
		panic("companion exploded")
	}

	err := h.run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companion exploded")
	assert.Equal(t, model.ExitFailure, model.ExitCodeFor(err))

	url := viewerURL(t, h.stdout.String())
	_, getErr := http.Get(url)
	assert.Error(t, getErr, "server must be stopped")
	assert.NoFileExists(t, h.root.LockPath())
}

func TestRun_DefaultsSupervisorFromSettings(t *testing.T) {
	h := newHarness(t)
	h.opts.Companions = nil
	h.opts.Settings.Companions = []string{"/opt/custom/browser"}

	l := New(h.opts)
	sup, ok := l.opts.Companions.(*supervisor.Supervisor)
	require.True(t, ok)
	assert.NotNil(t, sup)
}
