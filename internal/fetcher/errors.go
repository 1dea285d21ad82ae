package fetcher

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeExtraction indicates the page was received but did not have the expected markup
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConfiguration indicates a required input was missing
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeUnsupportedSource indicates the URL belongs to no supported retailer
	ErrorTypeUnsupportedSource ErrorType = "unsupported_source"
	// ErrorTypeExhausted indicates every attempt failed and no fallback was available
	ErrorTypeExhausted ErrorType = "exhausted"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinels for errors.Is; a *FetchError matches the one for its Type.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrFetchExhausted    = errors.New("fetch attempts exhausted")
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Attempts   int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the package sentinels by Type.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Type == ErrorTypeConfiguration
	case ErrUnsupportedSource:
		return e.Type == ErrorTypeUnsupportedSource
	case ErrFetchExhausted:
		return e.Type == ErrorTypeExhausted
	}
	return false
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error. Rate limiting ends the
// current call rather than being retried into.
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewClientError creates a client error. Unlike rate limiting it is retryable.
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewExtractionError creates an extraction error
func NewExtractionError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeExtraction,
		Retryable: true,
		Message:   cause.Error(),
		Cause:     cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeConfiguration,
		Retryable: false,
		Message:   message,
	}
}

// NewUnsupportedSourceError creates an unsupported source error
func NewUnsupportedSourceError(url string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeUnsupportedSource,
		Retryable: false,
		Message:   fmt.Sprintf("no extractor supports %q", url),
	}
}

// NewExhaustedError creates an exhausted error wrapping the last attempt's failure
func NewExhaustedError(attempts int, last error) *FetchError {
	msg := fmt.Sprintf("gave up after %d attempt(s)", attempts)
	if last != nil {
		msg = fmt.Sprintf("%s: %v", msg, last)
	}
	return &FetchError{
		Type:      ErrorTypeExhausted,
		Retryable: false,
		Attempts:  attempts,
		Message:   msg,
		Cause:     last,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}
