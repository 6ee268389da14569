package errors

import (
	stderrors "errors"
	"fmt"
)

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpInvalidBatchError   = "invalid_batch"
	HttpInvalidQueryError   = "invalid_query"
	HttpPayloadTooLarge     = "payload_too_large"
	HttpRetryableError      = "retryable_error"
	HttpFatalError          = "fatal_error"
	HttpPartnerMisalignment = "partner_response_misaligned"
)

// ErrorResponse is the error response body returned to the delivery runtime.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RetryableError signals a transient condition (rate limiting, service
// unavailable). The caller is expected to retry the whole unit of work.
type RetryableError struct {
	Message    string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *RetryableError) Error() string {
	return formatError(e.Message, e.StatusCode, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// FatalError signals a rejection that retrying cannot fix, such as a malformed
// payload or bad credentials.
type FatalError struct {
	Message    string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *FatalError) Error() string {
	return formatError(e.Message, e.StatusCode, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func formatError(msg string, status int, err error) string {
	switch {
	case status != 0 && err != nil:
		return fmt.Sprintf("%s (status %d): %v", msg, status, err)
	case status != 0:
		return fmt.Sprintf("%s (status %d)", msg, status)
	case err != nil:
		return fmt.Sprintf("%s: %v", msg, err)
	default:
		return msg
	}
}

// IsRetryable reports whether err carries a RetryableError anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return stderrors.As(err, &re)
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return stderrors.As(err, &fe)
}

// StatusCode extracts the HTTP status recorded on a classified error, or 0.
func StatusCode(err error) int {
	var re *RetryableError
	if stderrors.As(err, &re) {
		return re.StatusCode
	}
	var fe *FatalError
	if stderrors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
