package errors

import "fmt"

// ExecutionKind classifies a backend execution failure.
type ExecutionKind string

const (
	// KindTimeout means the statement or remote command exceeded its deadline.
	KindTimeout ExecutionKind = "Timeout"

	// KindRemoteFailure means the backend ran the action and reported failure
	// (SQL error, non-zero exit status).
	KindRemoteFailure ExecutionKind = "RemoteFailure"

	// KindConnectionFailure means the backend could not be reached.
	KindConnectionFailure ExecutionKind = "ConnectionFailure"
)

// ExecutionError is returned by action executors.
//
// It matches ErrExecution (and any *Error with ErrCodeExecution) as well as
// other *ExecutionError values of the same Kind under errors.Is.
type ExecutionError struct {
	Kind ExecutionKind
	// Host is the host code the action ran against.
	Host string
	// ExitCode is the remote exit status for RemoteFailure of an SSH action.
	ExitCode int
	Cause    error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("[%s] %s on %s", ErrCodeExecution, e.Kind, e.Host)
	if e.Kind == KindRemoteFailure && e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the execution code or an ExecutionError of the same kind.
func (e *ExecutionError) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return t.Code == ErrCodeExecution
	case *ExecutionError:
		return t.Kind == e.Kind
	}
	return false
}

// NewTimeoutError creates a Timeout execution error.
func NewTimeoutError(host string, cause error) *ExecutionError {
	return &ExecutionError{Kind: KindTimeout, Host: host, Cause: cause}
}

// NewRemoteFailureError creates a RemoteFailure execution error with the remote exit code.
func NewRemoteFailureError(host string, exitCode int, cause error) *ExecutionError {
	return &ExecutionError{Kind: KindRemoteFailure, Host: host, ExitCode: exitCode, Cause: cause}
}

// NewConnectionFailureError creates a ConnectionFailure execution error.
func NewConnectionFailureError(host string, cause error) *ExecutionError {
	return &ExecutionError{Kind: KindConnectionFailure, Host: host, Cause: cause}
}
