package api

import (
	"errors"
	"fmt"
)

// ErrNoPointStats is returned when the service answers without statistics.
var ErrNoPointStats = errors.New("no point stats available")

// TransportError is a connection, TLS, proxy or timeout failure.
// No HTTP response was received.
type TransportError struct {
	Op    string
	Proxy string
	Err   error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.Proxy != "" {
		return fmt.Sprintf("%s: transport error via proxy: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a response with a non-2xx status code.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ApplicationError is a 2xx response whose payload reports a failure or
// cannot be decoded.
type ApplicationError struct {
	Op     string
	Result string
	Body   string
}

// Error implements error.
func (e *ApplicationError) Error() string {
	if e.Result == "" {
		return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("%s: result %q: %s", e.Op, e.Result, e.Body)
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsStatus reports whether err is a *StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// IsApplication reports whether err is an *ApplicationError.
func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}
