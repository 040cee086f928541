package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status plus a user-facing message alongside the
// wrapped cause. Handlers return them as-is; the fiber error handler maps
// them onto the JSON envelope.
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(statusCode int, err error, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, err, message)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return newAppError(http.StatusNotFound, err, message)
}

func NewConflictError(err error, message string) *AppError {
	return newAppError(http.StatusConflict, err, message)
}

func NewInternalError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, err, message)
}

// GetAppError unwraps err looking for an AppError.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
