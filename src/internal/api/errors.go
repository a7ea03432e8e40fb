package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/params"
)

// ErrorCode represents standard API error codes.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeNotFound indicates an unknown API code or route.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeValidationFailed indicates parameters that break the API's field rules.
	ErrCodeValidationFailed ErrorCode = "validation_failed"

	// ErrCodeForbidden indicates the caller is not allowlisted.
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeUnavailable indicates no backend host could serve the call.
	ErrCodeUnavailable ErrorCode = "backend_unavailable"

	// ErrCodeInternalError indicates a server-side problem. Details are logged, not returned.
	ErrCodeInternalError ErrorCode = "internal_error"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps an APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code ErrorCode, message string) APIError {
	return APIError{Code: code, Message: message}
}

// WithDetails adds details to an APIError.
func (e APIError) WithDetails(details map[string]interface{}) APIError {
	e.Details = details
	return e
}

// WriteError writes an error response to the HTTP response writer.
func WriteError(w http.ResponseWriter, statusCode int, err APIError) {
	if err.RequestID == "" {
		err.RequestID = w.Header().Get(RequestIDHeader)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// WriteInvalidRequest writes a 400 Bad Request error.
func WriteInvalidRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, NewAPIError(ErrCodeInvalidRequest, message))
}

// WriteNotFound writes a 404 Not Found error.
func WriteNotFound(w http.ResponseWriter, resource string) {
	WriteError(w, http.StatusNotFound, NewAPIError(ErrCodeNotFound, resource+" not found"))
}

// WriteForbidden writes a 403 Forbidden error.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// WriteInternalError writes a 500 Internal Server Error.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// StatusOf maps a pipeline error to its HTTP status.
func StatusOf(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeDenied:
		return http.StatusForbidden
	case errors.ErrCodeNoHostAvailable, errors.ErrCodeExecution:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteDomainError writes the response for a failed pipeline run.
//
// Metadata and assembly problems are reported with a generic message; the
// cause stays in the server log.
func WriteDomainError(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		WriteError(w, status, NewAPIError(ErrCodeNotFound, "unknown api code"))

	case errors.ErrCodeValidation:
		apiErr := NewAPIError(ErrCodeValidationFailed, "request parameters are invalid")
		var fields params.FieldErrors
		if stderrors.As(err, &fields) {
			apiErr = apiErr.WithDetails(map[string]interface{}{"fields": fields})
		}
		WriteError(w, status, apiErr)

	case errors.ErrCodeDenied:
		apiErr := NewAPIError(ErrCodeForbidden, "access denied")
		var denial *errors.AccessDenial
		if stderrors.As(err, &denial) {
			apiErr = apiErr.WithDetails(map[string]interface{}{
				"api_code":  denial.APICode,
				"caller_ip": denial.CallerIP,
			})
		}
		WriteError(w, status, apiErr)

	case errors.ErrCodeNoHostAvailable, errors.ErrCodeExecution:
		apiErr := NewAPIError(ErrCodeUnavailable, "no backend host could serve the request")
		var execErr *errors.ExecutionError
		if stderrors.As(err, &execErr) {
			apiErr = apiErr.WithDetails(map[string]interface{}{"kind": execErr.Kind})
		}
		WriteError(w, status, apiErr)

	default:
		WriteInternalError(w, "internal error")
	}
}
