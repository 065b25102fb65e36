package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateAccountCreation.
var (
	// ErrEmptyFilePath is returned when a store file path is empty.
	ErrEmptyFilePath = errors.New("invalid file path: store paths must not be empty")

	// ErrEmptyBaseURL is returned when the API base URL is empty.
	ErrEmptyBaseURL = errors.New("invalid api base url: must not be empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when any loop delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxCycles is returned when the cycle limit is negative.
	ErrInvalidMaxCycles = errors.New("invalid max cycles: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidHistoryLimit is returned when the history limit is negative.
	ErrInvalidHistoryLimit = errors.New("invalid history limit: must be non-negative")

	// ErrInvalidLogFormat is returned when the log format is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrMissingCaptchaKey is returned when account creation is requested
	// without a captcha service key.
	ErrMissingCaptchaKey = errors.New("captcha api key missing: set " + CaptchaAPIKeyEnv)

	// ErrMissingCaptchaTarget is returned when the captcha site key or page URL is empty.
	ErrMissingCaptchaTarget = errors.New("captcha site key and page url must be set")
)
