// Package cli implements the cobra-based command line of viewer-launcher.
//
// The launcher has no subcommands: the root command parses its flags,
// resolves the content root and settings, sets up logging and hands over to
// internal/launcher. Execute turns the returned error into the process exit
// code.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/viewer-launcher/internal/config"
	"github.com/shinji-kodama/viewer-launcher/internal/launcher"
	"github.com/shinji-kodama/viewer-launcher/internal/logging"
	"github.com/shinji-kodama/viewer-launcher/internal/model"
	"github.com/shinji-kodama/viewer-launcher/internal/shutdown"
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.2.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// rootOptions holds the parsed flags of one invocation.
type rootOptions struct {
	port         int
	noNewConsole bool
	showVersion  bool
	root         string
	configPath   string
	verbose      bool
	logFile      string
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "viewer-launcher",
		Short: "Serve the timeline viewer locally and open it in a dedicated window",
		Long: `viewer-launcher serves the viewer directory on a loopback port and opens it in
a Chromium-family browser running in app mode with a throwaway profile. When no
such browser is installed the system default browser is used instead.

The run ends when the viewer window closes (or, with the default browser, when
the page stops answering health checks). Only one launcher runs per viewer
directory at a time.

Exit codes: 0 success, 1 failure or interruption, 2 configuration error.`,
		Args: cobra.NoArgs,

		// Errors are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLauncher(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&opts.port, "port", 0, "Preferred port to bind the server to (no fallback if busy)")
	flags.BoolVar(&opts.noNewConsole, "no-new-console", false, "Do not detach the browser into a new console (useful for CI/headless)")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "Show version and exit")
	flags.StringVar(&opts.root, "root", "", "Directory to serve (default: ./viewer, or viewer/ beside the executable)")
	flags.StringVar(&opts.configPath, "config", "", "Settings file (default: viewer.config.{jsonc,json,yaml,yml,toml} beside the lock file)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flags.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	// Bad flags are a usage problem, reported like other configuration errors.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitConfigError, "invalid arguments", err)
	})

	return rootCmd
}

func runLauncher(cmd *cobra.Command, opts *rootOptions) error {
	if opts.showVersion {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
		return nil
	}

	// Handlers go in first so a signal during startup is not lost.
	tok := shutdown.NewToken()
	coordinator := shutdown.Install(tok)
	defer coordinator.Stop()

	root, err := config.ResolveContentRoot(opts.root)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "error locating viewer directory", err)
	}

	settings, settingsPath, err := config.LoadOrDefault(opts.configPath, root.SettingsDir())
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "error loading settings", err)
	}

	logger, closeLog, err := setupLogging(cmd.ErrOrStderr(), opts, settings)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "error opening log file", err)
	}
	defer closeLog()

	if settingsPath != "" {
		logger.Debug("Loaded settings", "path", settingsPath)
	}

	l := launcher.New(launcher.Options{
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		ContentRoot:   root,
		Settings:      settings,
		PreferredPort: opts.port,
		NewConsole:    !opts.noNewConsole,
		Stdout:        cmd.OutOrStdout(),
		Logger:        logger,
		Token:         tok,
	})
	return l.Run()
}

func setupLogging(stderr io.Writer, opts *rootOptions, settings config.Settings) (*slog.Logger, func(), error) {
	level := logging.ParseLevel(settings.LogLevel)
	if opts.verbose {
		level = slog.LevelDebug
	}

	if opts.logFile == "" {
		return logging.Setup(stderr, level), func() {}, nil
	}
	return logging.SetupMulti(opts.logFile, stderr, level)
}

// Execute runs the root command and exits the process with the code its
// error maps to. It returns normally only on success.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(reportError(rootCmd.ErrOrStderr(), err)))
	}
}

// reportError prints err as "Error: ..." and returns its exit code.
func reportError(w io.Writer, err error) model.ExitCode {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr.Message != "" {
		if cliErr.Err != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", cliErr.Message, cliErr.Err)
		} else {
			fmt.Fprintf(w, "Error: %s\n", cliErr.Message)
		}
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return model.ExitCodeFor(err)
}
