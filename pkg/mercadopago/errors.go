package mercadopago

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingAccessToken is returned when a client is constructed without credentials.
	ErrMissingAccessToken = errors.New("mercadopago access token is required")

	// ErrInvalidResponse is returned when the API responds with a body that is not valid JSON.
	ErrInvalidResponse = errors.New("failed to parse mercadopago response")
)

// APIError is a non-2xx response from the Mercado Pago API. It carries the
// numeric status code and the parsed error payload so callers can branch on
// specific statuses without depending on payload fields.
type APIError struct {
	StatusCode int
	Message    string
	Payload    map[string]any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mercadopago: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("mercadopago: request failed with status %d", e.StatusCode)
}

// IsNotFound reports whether err is an APIError with status 404.
// The reconciliation engine treats a missing remote subscription as
// intentionally terminated, never as transient.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// isEndpointFallback reports whether err should trigger a retry against the
// secondary endpoint surface. Only 400/404 qualify: those indicate the
// object lives on the other API surface, while any other status is a real
// failure and must not be retried.
func isEndpointFallback(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound
}
