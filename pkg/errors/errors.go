package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrTooManyRequests    = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "rate limit exceeded")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// LMS integration errors.
var (
	ErrLMSDisabled             = New("LMS_DISABLED", http.StatusServiceUnavailable, "lms integration is not enabled")
	ErrMappingMissing          = New("MAPPING_MISSING", http.StatusPreconditionFailed, "unit is not linked to an lms org unit")
	ErrLMSTokenMissing         = New("LMS_TOKEN_MISSING", http.StatusPreconditionFailed, "lms access token missing or about to expire")
	ErrSyncRunning             = New("SYNC_RUNNING", http.StatusConflict, "grade transfer already running for unit")
	ErrStateGenerationFailed   = New("STATE_GENERATION_FAILED", http.StatusInternalServerError, "unable to generate unique oauth state")
	ErrInvalidOAuthState       = New("INVALID_OAUTH_STATE", http.StatusBadRequest, "invalid oauth state")
	ErrTokenExchangeFailed     = New("TOKEN_EXCHANGE_FAILED", http.StatusBadGateway, "oauth token exchange failed")
	ErrGradeItemCreationFailed = New("GRADE_ITEM_CREATION_FAILED", http.StatusBadGateway, "failed to create lms grade item")
	ErrClassListFetchFailed    = New("CLASS_LIST_FETCH_FAILED", http.StatusBadGateway, "failed to fetch lms class list")
	ErrLMSRequestFailed        = New("LMS_REQUEST_FAILED", http.StatusBadGateway, "lms request failed")
)

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
