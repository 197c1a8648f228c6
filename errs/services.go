package errs

import (
	"errors"
	"net/http"
)

// External service errors
var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrMediaStore         = errors.New("media store request failed")
)

const CodeMediaStore = "MEDIA_STORE_ERROR"

// NewMediaStoreError reports a failed call to the external media host. The
// operation that needed it was not applied locally.
func NewMediaStoreError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		Code:       CodeMediaStore,
		err:        ErrMediaStore,
		kind:       ErrServiceUnavailable,
		Details:    "Failed to " + operation,
		Cause:      cause,
	}
}

// Resource specific not found codes.
const (
	CodeAdminNotFound      = "ADMIN_NOT_FOUND"
	CodeProjectNotFound    = "PROJECT_NOT_FOUND"
	CodeTechnologyNotFound = "TECHNOLOGY_NOT_FOUND"
)
