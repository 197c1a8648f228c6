package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error sentinel values. Every ApiErr reports errors.Is against the
// sentinel of its class.
var (
	ErrBadRequest    = errors.New("malformed request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("operation not allowed")
	ErrInternal      = errors.New("internal server error")
	ErrConflict      = errors.New("resource conflict")
	ErrConfiguration = errors.New("configuration error")
	ErrCORSBlocked   = errors.New("request blocked by CORS policy")
)

// Machine readable codes carried in the error envelope.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeServerError   = "SERVER_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeCORSBlocked   = "CORS_BLOCKED"
)

type ApiErr struct {
	StatusCode int
	Code       string
	err        error
	kind       error
	Details    string // Additional details about the error
	Field      string // Field that caused the error (for validation errors)
	Cause      error  // The underlying cause of the error
}

func NewApiErr(statusCode int, code, message string) *ApiErr {
	return &ApiErr{
		StatusCode: statusCode,
		Code:       code,
		err:        errors.New(message),
		kind:       kindFor(statusCode),
	}
}

func kindFor(statusCode int) error {
	switch statusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

// implements error interface. this allows us to pass an instance of ApiErr as an argument of type `error`
func (e *ApiErr) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.err.Error(), e.Details)
	}
	return e.err.Error()
}

// Message is the client facing message without details.
func (e *ApiErr) Message() string {
	return e.err.Error()
}

// GetFullError returns a recursive error message including all causes
func (e *ApiErr) GetFullError() string {
	msg := e.Error()
	if e.Cause != nil {
		var apiErr *ApiErr
		if errors.As(e.Cause, &apiErr) {
			msg = fmt.Sprintf("%s -> %s", msg, apiErr.GetFullError())
		} else {
			msg = fmt.Sprintf("%s -> %s", msg, e.Cause.Error())
		}
	}
	return msg
}

// Is lets errors.Is(err, ErrNotFound) and friends match on the error class.
func (e *ApiErr) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *ApiErr) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of e carrying cause. Shared sentinels stay untouched.
func (e *ApiErr) WithCause(cause error) *ApiErr {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetails returns a copy of e carrying details.
func (e *ApiErr) WithDetails(details string) *ApiErr {
	cp := *e
	cp.Details = details
	return &cp
}

func NewBadRequestError(code, message string) *ApiErr {
	return NewApiErr(http.StatusBadRequest, code, message)
}

func NewUnauthorizedError(code, message string) *ApiErr {
	return NewApiErr(http.StatusUnauthorized, code, message)
}

func NewForbiddenError(code, message string) *ApiErr {
	return NewApiErr(http.StatusForbidden, code, message)
}

func NewNotFoundError(code, message string) *ApiErr {
	return NewApiErr(http.StatusNotFound, code, message)
}

func NewConflictError(code, message string) *ApiErr {
	return NewApiErr(http.StatusConflict, code, message)
}

func NewInternalError(message string) *ApiErr {
	return NewApiErr(http.StatusInternalServerError, CodeServerError, message)
}

func NewInternalErrorWithCause(message string, cause error) *ApiErr {
	return NewInternalError(message).WithCause(cause)
}

// NewConfigurationError reports a missing or invalid setting. The process
// cannot serve the affected operation until it is fixed.
func NewConfigurationError(message string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeConfiguration,
		err:        errors.New(message),
		kind:       ErrConfiguration,
		Cause:      cause,
	}
}

func NewCORSError(origin string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		Code:       CodeCORSBlocked,
		err:        ErrCORSBlocked,
		kind:       ErrForbidden,
		Details:    fmt.Sprintf("Origin '%s' is not allowed by CORS policy", origin),
	}
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// CodeOf returns the envelope code for err, SERVER_ERROR for anything that is
// not an ApiErr.
func CodeOf(err error) string {
	var apiErr *ApiErr
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeServerError
}
