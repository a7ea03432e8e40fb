// Package errors provides the gateway's error taxonomy.
//
// Every failure that leaves a pipeline stage is an *Error carrying one of the
// codes below, so callers can branch with errors.Is against a code sentinel
// instead of matching strings. Execution failures carry extra context in
// *ExecutionError.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a category of error that can occur in the gateway.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown API code.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConfigInvalid indicates malformed metadata in the configuration tables.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// ErrCodeValidation indicates bad caller input.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeDenied indicates the caller IP is not allowlisted.
	ErrCodeDenied ErrorCode = "DENIED"

	// ErrCodeNoHostAvailable indicates every enabled backend host was exhausted.
	ErrCodeNoHostAvailable ErrorCode = "NO_HOST_AVAILABLE"

	// ErrCodeExecution indicates a backend action failed.
	ErrCodeExecution ErrorCode = "EXECUTION_ERROR"

	// ErrCodeAssembly indicates the result rows do not fit the declared output hierarchy.
	ErrCodeAssembly ErrorCode = "ASSEMBLY_ERROR"

	// ErrCodeConfig indicates a problem with the gateway's own configuration file.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks.
var (
	ErrNotFound        = New(ErrCodeNotFound, "not found")
	ErrConfigInvalid   = New(ErrCodeConfigInvalid, "configuration invalid")
	ErrValidation      = New(ErrCodeValidation, "validation failed")
	ErrDenied          = New(ErrCodeDenied, "access denied")
	ErrNoHostAvailable = New(ErrCodeNoHostAvailable, "no host available")
	ErrExecution       = New(ErrCodeExecution, "execution failed")
	ErrAssembly        = New(ErrCodeAssembly, "assembly failed")
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewNotFoundError creates an error for an unknown API code.
func NewNotFoundError(message string) *Error {
	return New(ErrCodeNotFound, message)
}

// NewConfigInvalidError creates an error for metadata that violates an invariant.
func NewConfigInvalidError(message string, cause error) *Error {
	return Wrap(ErrCodeConfigInvalid, message, cause)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return Wrap(ErrCodeValidation, message, cause)
}

// NewDeniedError creates an access denied error.
func NewDeniedError(message string) *Error {
	return New(ErrCodeDenied, message)
}

// AccessDenial names the caller and the API of a refused call.
type AccessDenial struct {
	APICode  string
	CallerIP string
}

func (d *AccessDenial) Error() string {
	return fmt.Sprintf("caller %s is not allowed to call %s", d.CallerIP, d.APICode)
}

// NewAccessDeniedError creates a DENIED error whose cause is an *AccessDenial.
func NewAccessDeniedError(apiCode, callerIP string) *Error {
	return Wrap(ErrCodeDenied, "access denied", &AccessDenial{APICode: apiCode, CallerIP: callerIP})
}

// NewNoHostAvailableError creates an error reporting that failover was exhausted.
func NewNoHostAvailableError(message string, cause error) *Error {
	return Wrap(ErrCodeNoHostAvailable, message, cause)
}

// NewAssemblyError creates a result assembly error.
func NewAssemblyError(message string, cause error) *Error {
	return Wrap(ErrCodeAssembly, message, cause)
}

// NewConfigError creates a new gateway configuration file error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}

// CodeOf returns the code of the first *Error or *ExecutionError in err's chain.
// Unclassified errors report ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		switch t := e.(type) {
		case *Error:
			return t.Code
		case *ExecutionError:
			return ErrCodeExecution
		}
	}
	return ErrCodeInternal
}
