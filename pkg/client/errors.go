package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is matched by errors caused by caller cancellation.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassUnexpected represents any other non-2xx status.
	ErrorClassUnexpected ErrorClass = "unexpected"

	// ErrorClassNetwork represents connection, DNS and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCancelled represents caller-initiated cancellation.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// HTTPError is a non-success response from the upstream.
type HTTPError struct {
	StatusCode int
	StatusText string
	// Body is the decoded JSON body, or the raw body as a string when it is
	// not valid JSON.
	Body  any
	Class ErrorClass
	URL   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream %s error (status %d): %s", e.Class, e.StatusCode, e.StatusText)
}

// TransportError is a failure to obtain any response: connection refused,
// DNS failure, attempt timeout or cancellation by the caller.
type TransportError struct {
	Method string
	URL    string
	// Cancelled is set when the caller's context ended; such errors are never retried.
	Cancelled bool
	Err       error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("%s %s: cancelled: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrContextCancelled for cancelled transport errors.
func (e *TransportError) Is(target error) bool {
	return e.Cancelled && target == ErrContextCancelled
}

// Class returns the error class of the transport failure.
func (e *TransportError) Class() ErrorClass {
	if e.Cancelled {
		return ErrorClassCancelled
	}
	return ErrorClassNetwork
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ErrorClassUnexpected
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// a malformed request cannot succeed by resubmission, and the caller
		// asked for cancellation
		return false
	}
}

// ClassOf returns the error class of err, or "" if err did not come from
// the client.
func ClassOf(err error) ErrorClass {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Class
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Class()
	}
	return ""
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return shouldRetry(ClassOf(err))
}
