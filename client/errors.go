package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAccessToken  = errors.New("response carried no access token")
	ErrSessionExpired = errors.New("session expired, log in again")
)

// Error is an error envelope returned by the API.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s (%s)", e.StatusCode, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// CodeOf returns the envelope code of err, or "" when err did not come from
// the API.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
