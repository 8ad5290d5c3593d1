// Package errors provides structured error types for epconvert operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindFormat represents malformed legacy bundle contents (raw buffers,
	// legacy text config).
	KindFormat
	// KindToolUnavailable represents a missing external encoder or prober.
	KindToolUnavailable
	// KindRecognition represents an unavailable OCR engine or identity dataset.
	KindRecognition
	// KindCommand represents external command execution errors.
	KindCommand
	// KindProbeParse represents duration-probe output parsing errors.
	KindProbeParse
	// KindJSONParse represents JSON parsing errors.
	KindJSONParse
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindNoBundlesFound represents no legacy bundles found under a root.
	KindNoBundlesFound
	// KindOperationFailed represents general operation failures.
	KindOperationFailed
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindFormat:
		return "Format error"
	case KindToolUnavailable:
		return "Tool unavailable"
	case KindRecognition:
		return "Recognition unavailable"
	case KindCommand:
		return "Command error"
	case KindProbeParse:
		return "Probe parse error"
	case KindJSONParse:
		return "JSON parse error"
	case KindConfig:
		return "Configuration error"
	case KindNoBundlesFound:
		return "No bundles found"
	case KindOperationFailed:
		return "Operation failed"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandWait means waiting for the command failed.
	CommandWait
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandWait:
		return fmt.Sprintf("failed to wait for %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for epconvert operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewFormatError creates an error for malformed legacy bundle contents.
func NewFormatError(message string) *CoreError {
	return &CoreError{Kind: KindFormat, Message: message}
}

// NewSizeMismatchError creates a format error for a raw buffer whose length
// cannot be reconciled with any known geometry.
func NewSizeMismatchError(got, want int) *CoreError {
	return &CoreError{
		Kind:    KindFormat,
		Message: fmt.Sprintf("raw buffer size mismatch: got %d bytes, expected %d, no known geometry matches", got, want),
	}
}

// NewToolUnavailableError creates an error for a missing external tool.
func NewToolUnavailableError(tool string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindToolUnavailable,
		Message:    fmt.Sprintf("%s not found in application directory, working directory, or PATH", tool),
		Underlying: underlying,
	}
}

// NewRecognitionError creates an error for unavailable recognition services.
func NewRecognitionError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindRecognition, Message: message, Underlying: underlying}
}

// NewCommandError creates a new command execution error.
func NewCommandError(cmd string, kind CommandErrorKind, underlying error) *CoreError {
	cmdErr := &CommandError{
		Command:    cmd,
		Kind:       kind,
		Underlying: underlying,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandStart, err)
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewProbeParseError creates a new duration-probe parsing error.
func NewProbeParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindProbeParse, Message: message, Underlying: underlying}
}

// NewJSONParseError creates a new JSON parsing error.
func NewJSONParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindJSONParse, Message: message, Underlying: underlying}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewNoBundlesFoundError creates an error for when no legacy bundles are found.
func NewNoBundlesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoBundlesFound, Message: fmt.Sprintf("no legacy bundles found in %s", dir)}
}

// NewOperationFailedError creates a new general operation failure error.
func NewOperationFailedError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindOperationFailed, Message: message, Underlying: underlying}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsToolUnavailable checks if the error reports a missing external tool.
func IsToolUnavailable(err error) bool {
	return IsKind(err, KindToolUnavailable)
}

// IsNoBundlesFound checks if the error is a no-bundles-found error.
func IsNoBundlesFound(err error) bool {
	return IsKind(err, KindNoBundlesFound)
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}
