package core

import "net/http"

// HTTPError represents an HTTP error with status code and machine-readable key.
// Handlers return domain errors; the response layer maps them onto HTTPError
// values so status codes stay consistent across endpoints.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Stable error key (e.g. "not_found", "conflict")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// 4xx client errors
var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
)

// 5xx server errors
var (
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "bad_gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

// WrapError attaches an HTTP status to a domain error. The wrapped error
// keeps the domain error's message while errors.As still resolves the
// HTTPError, and errors.Is still matches the original sentinel.
func WrapError(he HTTPError, err error) error {
	if err == nil {
		return he
	}
	return statusError{he: he, err: err}
}

type statusError struct {
	he  HTTPError
	err error
}

func (e statusError) Error() string { return e.err.Error() }

func (e statusError) Unwrap() []error { return []error{e.he, e.err} }
