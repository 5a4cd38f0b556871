package httpclient

import (
	goerrors "errors"
	"fmt"

	ierr "github.com/hallmail/hallmail/internal/errors"
)

// Error is a non-2xx response from a remote service
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: remote responded with status %d", ierr.ErrCodeHTTPClient, e.StatusCode)
}

// Is matches ErrHTTPClient so callers can treat it like any upstream failure
func (e *Error) Is(target error) bool {
	return target == ierr.ErrHTTPClient
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
