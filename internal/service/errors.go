package service

import (
	"errors"
	"net/http"
)

// GenericFailure is the message used when an error response carries no detail.
const GenericFailure = "Request failed"

// ErrInvalidResponse is returned when a successful response body cannot be decoded.
var ErrInvalidResponse = errors.New("Invalid response")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return GenericFailure
	}
	return e.Detail
}

// TransportError wraps a failure to reach the server at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is a 401 or 403 from the server.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
