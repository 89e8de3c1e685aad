package openrouter

import "fmt"

// TransportError wraps a failure that produced no HTTP response at all
// (DNS, connection refused, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an HTTP response with status >= 400. Message comes from the
// upstream error envelope when present, else from the raw body, else it is
// synthesized from the status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// DecodeError is a malformed body on a success-status response.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decoding response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
