package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWaitOutcome_String verifies that WaitOutcome values produce the
// expected string representations used in log output.
func TestWaitOutcome_String(t *testing.T) {
	tests := []struct {
		outcome  WaitOutcome
		expected string
	}{
		{OutcomeCompanionExited, "companion-exited"},
		{OutcomeHealthLost, "health-lost"},
		{OutcomeTimedOut, "timed-out"},
		{OutcomeShutdownRequested, "shutdown-requested"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.outcome.String())
		})
	}
}

// TestWaitOutcome_IsValid checks that only defined outcomes pass validation.
func TestWaitOutcome_IsValid(t *testing.T) {
	assert.True(t, OutcomeCompanionExited.IsValid())
	assert.True(t, OutcomeHealthLost.IsValid())
	assert.True(t, OutcomeTimedOut.IsValid())
	assert.True(t, OutcomeShutdownRequested.IsValid())
	assert.False(t, WaitOutcome("crashed").IsValid())
	assert.False(t, WaitOutcome("").IsValid())
}

// TestWaitOutcome_Interrupted verifies that only a shutdown request counts
// as an interrupted run. A timed-out fallback poll is still a normal finish.
func TestWaitOutcome_Interrupted(t *testing.T) {
	assert.True(t, OutcomeShutdownRequested.Interrupted())
	assert.False(t, OutcomeCompanionExited.Interrupted())
	assert.False(t, OutcomeHealthLost.Interrupted())
	assert.False(t, OutcomeTimedOut.Interrupted())
}

func TestParseWaitOutcome(t *testing.T) {
	tests := []struct {
		input    string
		expected WaitOutcome
		hasError bool
	}{
		{"companion-exited", OutcomeCompanionExited, false},
		{"Health-Lost", OutcomeHealthLost, false},
		{" timed-out ", OutcomeTimedOut, false},
		{"unknown", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseWaitOutcome(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestExitCodeFor verifies the mapping from run errors to process exit
// codes, including wrapped sentinels and explicit CLIError codes.
func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil is success", nil, ExitSuccess},
		{"configuration error", fmt.Errorf("viewer dir missing: %w", ErrConfiguration), ExitConfigError},
		{"lock contention", fmt.Errorf("pid 42: %w", ErrLockContention), ExitFailure},
		{"interrupted", ErrInterrupted, ExitFailure},
		{"server timeout", ErrServerStartTimeout, ExitFailure},
		{"explicit cli error code", NewCLIError(ExitConfigError, "bad settings"), ExitConfigError},
		{"wrapped cli error", fmt.Errorf("outer: %w", WrapCLIError(ExitFailure, "run failed", ErrNoFreePort)), ExitFailure},
		{"unclassified", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

// TestCLIError_Error verifies the error message format with and without
// an underlying error.
func TestCLIError_Error(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitFailure, "viewer session failed")
		assert.Equal(t, "viewer session failed", err.Error())
		assert.Equal(t, ExitFailure, err.Code)
	})

	t.Run("with underlying error", func(t *testing.T) {
		err := WrapCLIError(ExitFailure, "could not allocate port", ErrPortUnavailable)
		assert.Equal(t, "could not allocate port: preferred port unavailable", err.Error())
	})
}

// TestCLIError_Unwrap verifies that errors.Is sees through CLIError to the
// wrapped sentinel.
func TestCLIError_Unwrap(t *testing.T) {
	err := WrapCLIError(ExitFailure, "run failed", fmt.Errorf("pid 7: %w", ErrLockContention))
	assert.True(t, errors.Is(err, ErrLockContention))
	assert.False(t, errors.Is(err, ErrInterrupted))
}
