package model

import (
	"errors"
	"fmt"
	"strings"
)

// WaitOutcome describes why the wait on a companion session ended.
//
// The outcomes map onto the two supervision paths:
//
//	dedicated companion: CompanionExited | ShutdownRequested
//	fallback polling:    HealthLost | TimedOut | ShutdownRequested
type WaitOutcome string

const (
	// OutcomeCompanionExited indicates the dedicated companion process exited
	// on its own (the user closed the viewer window).
	OutcomeCompanionExited WaitOutcome = "companion-exited"

	// OutcomeHealthLost indicates a health probe failed during fallback
	// polling, which is interpreted as "the viewer tab was closed".
	OutcomeHealthLost WaitOutcome = "health-lost"

	// OutcomeTimedOut indicates fallback polling reached its ceiling without
	// the health endpoint ever becoming unreachable.
	OutcomeTimedOut WaitOutcome = "timed-out"

	// OutcomeShutdownRequested indicates a shutdown signal arrived while
	// waiting. This is the only outcome that makes a run "interrupted".
	OutcomeShutdownRequested WaitOutcome = "shutdown-requested"
)

// String returns the string representation of WaitOutcome.
func (o WaitOutcome) String() string {
	return string(o)
}

// IsValid checks whether the WaitOutcome value is one of the predefined
// outcomes.
func (o WaitOutcome) IsValid() bool {
	switch o {
	case OutcomeCompanionExited, OutcomeHealthLost, OutcomeTimedOut, OutcomeShutdownRequested:
		return true
	default:
		return false
	}
}

// Interrupted reports whether the outcome should be reported to the caller
// as an interrupted run rather than a finished one.
func (o WaitOutcome) Interrupted() bool {
	return o == OutcomeShutdownRequested
}

// ParseWaitOutcome converts a string to a WaitOutcome.
// Returns an error if the string does not match any valid outcome.
func ParseWaitOutcome(s string) (WaitOutcome, error) {
	outcome := WaitOutcome(strings.ToLower(strings.TrimSpace(s)))
	if !outcome.IsValid() {
		return "", fmt.Errorf("invalid wait outcome: %q (valid: companion-exited, health-lost, timed-out, shutdown-requested)", s)
	}
	return outcome, nil
}

// Sentinel errors classifying every failure a run can hit. Packages wrap
// them with fmt.Errorf("...: %w", err) and callers test with errors.Is.
var (
	// ErrConfiguration means the environment is unusable before any
	// resource was touched (content root missing, bad settings file).
	ErrConfiguration = errors.New("configuration error")

	// ErrLockContention means another live run owns the lock marker.
	ErrLockContention = errors.New("another instance is already running")

	// ErrPortUnavailable means the explicitly preferred port could not be
	// bound. No other port is tried.
	ErrPortUnavailable = errors.New("preferred port unavailable")

	// ErrNoFreePort means every port in the scan range was occupied.
	ErrNoFreePort = errors.New("no free port found")

	// ErrServerStartTimeout means the local server never accepted a
	// connection within the startup timeout.
	ErrServerStartTimeout = errors.New("server failed to start within timeout")

	// ErrCompanionLaunch means the companion binary was found but could not
	// be spawned. It is recoverable: the run degrades to the fallback path.
	ErrCompanionLaunch = errors.New("failed to launch companion")

	// ErrInterrupted means the run was ended by a shutdown signal. It is a
	// distinct, non-crash termination, but still yields a non-zero exit.
	ErrInterrupted = errors.New("interrupted")
)

// ExitCode defines the process exit codes of the launcher.
// These codes allow the integration harness and CI systems to
// programmatically determine the outcome of a run.
type ExitCode int

const (
	// ExitSuccess indicates the viewer session finished cleanly.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates a failure, an interruption, or lock contention.
	ExitFailure ExitCode = 1

	// ExitConfigError indicates an environment/configuration error such as
	// a missing content root. Nothing was allocated.
	ExitConfigError ExitCode = 2
)

// ExitCodeFor maps an error returned by a run to its exit code.
// A nil error maps to ExitSuccess; configuration errors map to
// ExitConfigError; everything else, including interruption, maps to
// ExitFailure.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	if errors.Is(err, ErrConfiguration) {
		return ExitConfigError
	}
	return ExitFailure
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
