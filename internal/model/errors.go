package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. The concrete error types below
// match them through their Is methods, so callers can branch on the kind
// without a type assertion.
var (
	// ErrNoAvailablePort matches any NoAvailablePortError.
	ErrNoAvailablePort = errors.New("no available port")

	// ErrPattern matches any PatternError.
	ErrPattern = errors.New("placeholder pattern error")

	// ErrInvalidPortRange matches any PortRangeError.
	ErrInvalidPortRange = errors.New("invalid port range")
)

// NoAvailablePortError is returned when the allocator exhausts its retry
// budget without finding a port that is in range, not excluded and bindable.
// It aborts the whole render.
type NoAvailablePortError struct {
	// Attempts is the number of candidates drawn before giving up.
	Attempts int
}

func (e *NoAvailablePortError) Error() string {
	return fmt.Sprintf("failed to find available port after %d attempts", e.Attempts)
}

// Is makes errors.Is(err, ErrNoAvailablePort) succeed.
func (e *NoAvailablePortError) Is(target error) bool {
	return target == ErrNoAvailablePort
}

// PatternError is returned when a built-in placeholder pattern fails to
// compile. The patterns are constants, so this indicates a programming error.
type PatternError struct {
	// Pattern is the regular expression source that failed.
	Pattern string

	// Err is the error reported by the regexp package.
	Err error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("regex error: %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying regexp error.
func (e *PatternError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPattern) succeed.
func (e *PatternError) Is(target error) bool {
	return target == ErrPattern
}

// PortRangeError reports a range whose lower bound exceeds its upper bound.
type PortRangeError struct {
	Low  uint16
	High uint16
}

func (e *PortRangeError) Error() string {
	return fmt.Sprintf("invalid port range %d-%d: start must not exceed end", e.Low, e.High)
}

// Is makes errors.Is(err, ErrInvalidPortRange) succeed.
func (e *PortRangeError) Is(target error) bool {
	return target == ErrInvalidPortRange
}

// ExitCode defines the CLI exit codes. These codes allow scripts and
// git hooks to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitTemplateNotFound indicates the env template file does not exist.
	ExitTemplateNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortAllocationFailed indicates a port placeholder could not be
	// resolved within the allocator's retry budget.
	ExitPortAllocationFailed ExitCode = 4

	// ExitGitError indicates a Git command failed or the working
	// directory is not inside a repository.
	ExitGitError ExitCode = 5

	// ExitRegistryError indicates the shared ports registry could not be
	// locked, read or written.
	ExitRegistryError ExitCode = 6

	// ExitInvalidConfig indicates the project configuration or a flag
	// value failed validation.
	ExitInvalidConfig ExitCode = 7
)

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
