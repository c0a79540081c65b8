package usecase

import "fmt"

type ErrorCode string

const (
	ErrorValidation          ErrorCode = "VALIDATION_ERROR"
	ErrorUnknownModel        ErrorCode = "UNKNOWN_MODEL"
	ErrorUnsupportedFileType ErrorCode = "UNSUPPORTED_FILE_TYPE"
	ErrorForbiddenVisibility ErrorCode = "FORBIDDEN_VISIBILITY"
	ErrorForbiddenRole       ErrorCode = "FORBIDDEN_ROLE"
	ErrorForbiddenScope      ErrorCode = "FORBIDDEN_SCOPE"
	ErrorNotFound            ErrorCode = "NOT_FOUND"
	ErrorAuthFailure         ErrorCode = "AUTH_FAILURE"
	ErrorProvider            ErrorCode = "PROVIDER_ERROR"
	ErrorStorage             ErrorCode = "STORAGE_ERROR"
	ErrorInternal            ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
