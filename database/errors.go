package database

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/voicenotes/errors"
)

// IsNotFound reports a GORM record-not-found error.
func IsNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// IsBusy reports sqlite lock contention, which is worth retrying.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// FromDatabase converts a storage error into an AppError.
func FromDatabase(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Conflict("A record with these details already exists.").WithCause(err)
	}
	appErr := errors.DatabaseError(err)
	appErr.Retryable = IsBusy(err)
	return appErr
}
