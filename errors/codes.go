package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Generic codes.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Note codes.
const (
	ErrCodeNoteNotFound        ErrorCode = "NOTE_NOT_FOUND"
	ErrCodeEmptyContent        ErrorCode = "EMPTY_CONTENT"
	ErrCodeTagGenerationFailed ErrorCode = "TAG_GENERATION_FAILED"
	ErrCodeSummaryFailed       ErrorCode = "SUMMARY_FAILED"
	ErrCodeExportFailed        ErrorCode = "EXPORT_FAILED"
)

// Dictation codes.
const (
	ErrCodeDictationUnavailable      ErrorCode = "DICTATION_UNAVAILABLE"
	ErrCodeDictationPermissionDenied ErrorCode = "DICTATION_PERMISSION_DENIED"
	ErrCodeDictationProviderError    ErrorCode = "DICTATION_PROVIDER_ERROR"
	ErrCodeDictationClosed           ErrorCode = "DICTATION_CLOSED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable:     true,
	ErrCodeTimeout:                true,
	ErrCodeRateLimited:            true,
	ErrCodeDatabaseError:          true,
	ErrCodeExternalService:        true,
	ErrCodeTagGenerationFailed:    true,
	ErrCodeSummaryFailed:          true,
	ErrCodeExportFailed:           true,
	ErrCodeDictationProviderError: true,
}

// IsRetryableCode reports whether callers may retry an operation that failed with code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
