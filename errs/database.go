package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
)

const (
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeInvalidReference    = "INVALID_REFERENCE"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"
)

func NewNotFound(code, entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		Code:       code,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
		kind:       ErrNotFound,
	}
}

// NewDatabaseError creates a new database error with details about the operation
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	details := fmt.Sprintf("Failed to %s %s", operation, entity)

	if cause != nil {
		var apiErr *ApiErr
		if errors.As(cause, &apiErr) {
			return apiErr
		}

		errStr := strings.ToLower(cause.Error())
		switch {
		case errors.Is(cause, gorm.ErrDuplicatedKey),
			strings.Contains(errStr, "duplicate key"),
			strings.Contains(errStr, "unique constraint failed"):
			return &ApiErr{
				StatusCode: http.StatusConflict,
				Code:       CodeDuplicateEntry,
				err:        fmt.Errorf("%s already exists", entity),
				kind:       ErrConflict,
				Details:    details,
				Cause:      cause,
			}
		case errors.Is(cause, gorm.ErrForeignKeyViolated),
			strings.Contains(errStr, "foreign key constraint"):
			return &ApiErr{
				StatusCode: http.StatusBadRequest,
				Code:       CodeInvalidReference,
				err:        fmt.Errorf("invalid reference in %s", entity),
				kind:       ErrBadRequest,
				Details:    "The referenced resource does not exist or cannot be linked",
				Cause:      cause,
			}
		case errors.Is(cause, gorm.ErrRecordNotFound):
			return &ApiErr{
				StatusCode: http.StatusNotFound,
				Code:       CodeNotFound,
				err:        fmt.Errorf("%s not found", entity),
				kind:       ErrNotFound,
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "connection refused"),
			strings.Contains(errStr, "failed to connect"):
			return &ApiErr{
				StatusCode: http.StatusServiceUnavailable,
				Code:       CodeDatabaseUnavailable,
				err:        ErrDatabaseConnection,
				kind:       ErrInternal,
				Details:    "Unable to connect to database",
				Cause:      cause,
			}
		}
	}

	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabaseError,
		err:        ErrDatabaseQuery,
		kind:       ErrInternal,
		Details:    details,
		Cause:      cause,
	}
}
