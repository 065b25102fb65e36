package proxy

import (
	"errors"
	"fmt"
)

// Parse errors: the line does not look like any supported proxy shape.
var (
	// ErrEmptyLine is returned for a blank proxy line.
	ErrEmptyLine = errors.New("proxy cannot be an empty string")

	// ErrUnsupportedFormat is returned when no proxy shape matches the line.
	ErrUnsupportedFormat = errors.New("unsupported proxy format")
)

// Validation errors: the line has a supported shape but a field is out of range.
var (
	// ErrInvalidPort is returned when the port is outside [1, 65535].
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrInvalidHost is returned when the host is neither an IPv4 address nor a domain.
	ErrInvalidHost = errors.New("invalid host: must be a valid IP or domain")

	// ErrInvalidScheme is returned for any scheme other than http or https.
	ErrInvalidScheme = errors.New("invalid protocol: only http and https are supported")

	// ErrInvalidRefreshURL is returned when the bracketed refresh URL is malformed.
	ErrInvalidRefreshURL = errors.New("invalid refresh url")
)

// ParseError describes why a raw proxy line was rejected.
type ParseError struct {
	// Line is the raw input line.
	Line string

	// Value is the offending field value, empty for parse errors.
	Value string

	// Err is one of the sentinel errors of this package.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("proxy %q: %v (got %q)", e.Line, e.Err, e.Value)
	}
	return fmt.Sprintf("proxy %q: %v", e.Line, e.Err)
}

// Unwrap returns the sentinel error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a validation error, i.e. the line
// matched a proxy shape but one of its fields was rejected.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidPort) ||
		errors.Is(err, ErrInvalidHost) ||
		errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrInvalidRefreshURL)
}
