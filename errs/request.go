package errs

import (
	"fmt"
	"net/http"
)

// Authentication codes.
const (
	CodeNoToken             = "NO_TOKEN"
	CodeInvalidTokenFormat  = "INVALID_TOKEN_FORMAT"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeNoRefreshToken      = "NO_REFRESH_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeMissingCredentials  = "MISSING_CREDENTIALS"
	CodeInvalidEmail        = "INVALID_EMAIL"
)

// Request and input validation codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidID         = "INVALID_ID"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidParameters = "INVALID_PARAMETERS"
	CodeInvalidData       = "INVALID_DATA"
	CodeInvalidJSON       = "INVALID_JSON"
	CodeInvalidFile       = "INVALID_FILE"
	CodeNoFile            = "NO_FILE"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
)

var (
	NoToken            = NewUnauthorizedError(CodeNoToken, "No token provided")
	InvalidTokenFormat = NewUnauthorizedError(CodeInvalidTokenFormat, "Invalid token format")
	InvalidToken       = NewUnauthorizedError(CodeInvalidToken, "Invalid or expired token")
)

func NewValidationError(message string) *ApiErr {
	return NewBadRequestError(CodeValidation, message)
}

func NewInvalidIDError(field string) *ApiErr {
	e := NewBadRequestError(CodeInvalidID, "Invalid ID format")
	e.Field = field
	return e
}

func NewInvalidDateError(field string) *ApiErr {
	e := NewBadRequestError(CodeInvalidDate, "Invalid date format")
	e.Field = field
	return e
}

func NewInvalidParametersError(details string) *ApiErr {
	return NewBadRequestError(CodeInvalidParameters, "Invalid query parameters").WithDetails(details)
}

func NewInvalidJSONError(cause error) *ApiErr {
	e := NewBadRequestError(CodeInvalidJSON, "Invalid JSON format").WithCause(cause)
	e.Field = "json"
	return e
}

func NewInvalidFileError(filename, reason string) *ApiErr {
	e := NewBadRequestError(CodeInvalidFile, fmt.Sprintf("Invalid file %q", filename)).WithDetails(reason)
	e.Field = "images"
	return e
}

func NewPayloadTooLargeError(maxSize int64) *ApiErr {
	return NewApiErr(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large").
		WithDetails(fmt.Sprintf("maximum allowed size is %d bytes", maxSize))
}

var (
	MissingCredentials  = NewBadRequestError(CodeMissingCredentials, "Email and password are required")
	InvalidEmail        = NewBadRequestError(CodeInvalidEmail, "Invalid email format")
	NoRefreshToken      = NewUnauthorizedError(CodeNoRefreshToken, "Refresh token not found")
	InvalidRefreshToken = NewUnauthorizedError(CodeInvalidRefreshToken, "Invalid or expired refresh token")
	NoFile              = NewBadRequestError(CodeNoFile, "No image file provided")
	InvalidImageOrders  = NewBadRequestError(CodeInvalidData, "imageOrders must be an array of {id, display_order}")
)
