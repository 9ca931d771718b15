// Package errors provides the structured application error used across
// voicenotes: a machine-readable code, a user-facing message, an HTTP
// status mapping and retryable detection.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code so sentinel comparisons work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with retryable detection from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- generic constructors ---

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.",
		http.StatusGatewayTimeout).WithDetail("operation", operation)
}

func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// InvalidInput reports a single bad field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, fmt.Sprintf("Invalid input: %s", reason), http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports a failed validation with a caller-provided message.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid authentication token.", http.StatusUnauthorized)
}

func Forbidden(reason string) *AppError {
	return New(ErrCodeForbidden, "You do not have access to this resource.", http.StatusForbidden).
		WithDetail("reason", reason)
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please slow down.", http.StatusTooManyRequests)
}

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.",
		http.StatusInternalServerError).WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.",
		http.StatusInternalServerError).WithCause(cause)
}

func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		http.StatusBadGateway).WithDetail("service", service).WithCause(cause)
}

// --- note constructors ---

func NoteNotFound(id string) *AppError {
	return New(ErrCodeNoteNotFound, "Note not found.", http.StatusNotFound).WithDetail("id", id)
}

// EmptyContent is returned when AI features are asked to work on an empty note.
func EmptyContent() *AppError {
	return New(ErrCodeEmptyContent, "Note content is empty.", http.StatusBadRequest)
}

func TagGenerationFailed(cause error) *AppError {
	return New(ErrCodeTagGenerationFailed, "Failed to generate tags. Please try again.",
		http.StatusBadGateway).WithCause(cause)
}

func SummaryFailed(cause error) *AppError {
	return New(ErrCodeSummaryFailed, "Failed to summarize notes. Please try again.",
		http.StatusBadGateway).WithCause(cause)
}

func ExportFailed(cause error) *AppError {
	return New(ErrCodeExportFailed, "Failed to export note. Please try again.",
		http.StatusBadGateway).WithCause(cause)
}

// --- dictation constructors ---

func DictationUnavailable() *AppError {
	return New(ErrCodeDictationUnavailable, "Speech recognition is not supported in this environment.",
		http.StatusServiceUnavailable)
}

func DictationPermissionDenied(cause error) *AppError {
	return New(ErrCodeDictationPermissionDenied,
		"Microphone access was denied. Grant permission and try again.",
		http.StatusForbidden).WithCause(cause)
}

func DictationProviderError(cause error) *AppError {
	return New(ErrCodeDictationProviderError, "Speech recognition failed. Please try again.",
		http.StatusBadGateway).WithCause(cause)
}

func DictationClosed() *AppError {
	return New(ErrCodeDictationClosed, "The dictation session has been closed.", http.StatusGone)
}
