package llm

import "errors"

// ErrMalformedRequest is returned when a request body does not have the
// expected generate or chat shape.
var ErrMalformedRequest = errors.New("malformed request")

// ErrorResponse is the JSON error body returned by the proxy and the API,
// matching the backend's own error shape.
type ErrorResponse struct {
	Error string `json:"error"`
}
