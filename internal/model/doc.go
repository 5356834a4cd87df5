// Package model defines the shared domain types and error values for the
// viewer-launcher CLI.
//
// This package contains pure data structures with no external dependencies:
// the outcome of waiting on a companion session (WaitOutcome), the process
// exit codes (ExitCode), the sentinel errors that classify every failure a
// run can hit, and a custom error type (CLIError) that carries an exit code
// for proper OS process exit handling.
package model
