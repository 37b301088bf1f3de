// Package errors provides centralized error definitions and error handling utilities
// for miseq. It defines sentinel errors for every failure kind the sequencing core
// reports, domain error types carrying the offending path, step or task, and
// classification helpers used by the TUI to decide how to surface a failure.
//
// # Error Types
//
// Domain-specific errors:
//   - PathError: a navigation, assignment or rename call referenced a bad path
//   - TaskError: a task failed to spawn, exited nonzero, or was cancelled
//   - SessionError: a run session rejected an operation (e.g. Busy)
//   - MiseError: the mise binary reported a failure
//
// Semantic errors:
//   - ValidationError: invalid input such as an out-of-range step or bad name
//
// # Usage
//
//	err := errors.NewPathError("rename", "frontend:build", errors.ErrDuplicateName)
//
//	if errors.Is(err, errors.ErrDuplicateName) { ... }
//
//	var taskErr *errors.TaskError
//	if errors.As(err, &taskErr) {
//	    fmt.Println(taskErr.Step, taskErr.ExitCode)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Catalog and assignment sentinel errors
var (
	// ErrInvalidPath indicates a path that does not resolve to a catalog item.
	ErrInvalidPath = New("invalid path")
	// ErrDuplicateName indicates a rename that collides with an existing sibling.
	ErrDuplicateName = New("duplicate name")
	// ErrInvalidName indicates a name that is empty or contains the namespace delimiter.
	ErrInvalidName = New("invalid name")
	// ErrInvalidStep indicates a step number outside 1..N.
	ErrInvalidStep = New("invalid step")
	// ErrNotTask indicates an operation that requires a task was given a group.
	ErrNotTask = New("not a task")
)

// Execution sentinel errors
var (
	// ErrBusy indicates a run was requested while another run session is active.
	ErrBusy = New("a run is already in progress")
	// ErrSpawnFailure indicates the task runner could not be launched.
	ErrSpawnFailure = New("failed to spawn task")
	// ErrNonZeroExit indicates a task exited with a nonzero code.
	ErrNonZeroExit = New("task exited with nonzero code")
	// ErrCancelled indicates a task was stopped on request.
	ErrCancelled = New("task cancelled")
	// ErrNothingToRun indicates a sequence with no tasks assigned to any step.
	ErrNothingToRun = New("no tasks assigned to any step")
)

// General sentinel errors
var (
	// ErrMiseFailed indicates the mise binary returned an error.
	ErrMiseFailed = New("mise command failed")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrClosed indicates an operation on a dispatcher that has shut down.
	ErrClosed = New("dispatcher closed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// MiseqError is the base interface for all miseq errors.
type MiseqError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PathError reports an operation that referenced a catalog path it could not use.
// The cause is one of ErrInvalidPath, ErrDuplicateName, ErrInvalidName or ErrNotTask.
//
// Example:
//
//	err := errors.NewPathError("select", "frontend:gone", errors.ErrInvalidPath)
//	fmt.Println(err) // "select frontend:gone: invalid path"
type PathError struct {
	baseError
	Op   string
	Path string
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, cause error) *PathError {
	return &PathError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *PathError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, path, e.cause)
	}
	return fmt.Sprintf("%s %s", e.Op, path)
}

// TaskError reports a task that did not succeed. ExitCode is -1 when the
// process never started.
//
// Example:
//
//	err := errors.NewTaskError("test", errors.ErrNonZeroExit).WithStep(2).WithExitCode(1)
//	fmt.Println(err) // "task error [task=test, step=2, code=1]: task exited with nonzero code"
type TaskError struct {
	baseError
	Task     string
	Step     int
	ExitCode int
}

// NewTaskError creates a new TaskError.
func NewTaskError(task string, cause error) *TaskError {
	return &TaskError{
		baseError: baseError{
			message:    "task failed",
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Task:     task,
		ExitCode: -1,
	}
}

// WithStep adds the step number to the error context.
func (e *TaskError) WithStep(step int) *TaskError {
	e.Step = step
	return e
}

// WithExitCode adds the process exit code to the error context.
func (e *TaskError) WithExitCode(code int) *TaskError {
	e.ExitCode = code
	return e
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	parts := []string{fmt.Sprintf("task=%s", e.Task)}
	if e.Step > 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.Step))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.ExitCode))
	}
	prefix := fmt.Sprintf("task error [%s]", strings.Join(parts, ", "))
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// SessionError reports an operation the run session refused.
//
// Example:
//
//	err := errors.NewSessionError("start sequence", errors.ErrBusy).WithSessionID("3f2a")
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// MiseError reports a failed invocation of the mise binary.
//
// Example:
//
//	err := errors.NewMiseError("tasks ls", cause).WithStderr("mise: no config")
type MiseError struct {
	baseError
	Command string
	Stderr  string
}

// NewMiseError creates a new MiseError.
func NewMiseError(command string, cause error) *MiseError {
	return &MiseError{
		baseError: baseError{
			message:    command,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Command: command,
	}
}

// WithStderr attaches the captured stderr of the failed command.
func (e *MiseError) WithStderr(stderr string) *MiseError {
	e.Stderr = strings.TrimSpace(stderr)
	return e
}

// Error returns the formatted error message.
func (e *MiseError) Error() string {
	msg := fmt.Sprintf("mise %s", e.Command)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Is matches ErrMiseFailed in addition to the wrapped cause.
func (e *MiseError) Is(target error) bool {
	return target == ErrMiseFailed
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("step out of range").WithField("step").WithValue(7)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is matches ErrInvalidInput in addition to the wrapped cause.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var miseqErr MiseqError
	if As(err, &miseqErr) {
		return miseqErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement MiseqError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var miseqErr MiseqError
	if As(err, &miseqErr) {
		return miseqErr.Severity()
	}
	return SeverityError
}

// IsRejection reports whether err is one of the synchronous, side-effect-free
// rejections (Busy, invalid path/name/step, duplicate name) rather than a
// failure that happened while doing work.
func IsRejection(err error) bool {
	for _, target := range []error{ErrBusy, ErrInvalidPath, ErrDuplicateName, ErrInvalidName, ErrInvalidStep, ErrNotTask} {
		if Is(err, target) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
