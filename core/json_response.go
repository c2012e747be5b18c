package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// JSON writes a success response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

// JSONMessage writes a success response carrying a human-readable message
// alongside optional data.
func JSONMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, JSONResponse{Message: message, Data: data})
}

// JSONError writes an error response. HTTPError values (direct or wrapped)
// determine the status code; anything else is an internal server error.
func JSONError(w http.ResponseWriter, err error) {
	httpErr := ErrInternalServerError

	var he HTTPError
	if errors.As(err, &he) {
		httpErr = he
	}

	detail := &ErrorDetail{Code: httpErr.Key}
	if err != nil && err.Error() != httpErr.Key {
		detail.Message = err.Error()
	} else {
		detail.Message = http.StatusText(httpErr.Code)
	}

	writeJSON(w, httpErr.Code, JSONResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes a request body into dst, limiting the body size to
// guard against abusive payloads on unauthenticated endpoints.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
