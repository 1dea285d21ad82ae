package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// AcceptHTML is the Accept header for retailer product pages
	AcceptHTML = "text/html,application/xhtml+xml"
	// AcceptJSON is the Accept header for JSON endpoints
	AcceptJSON = "application/json"
)

// NewHTTPClient creates a new HTTP client. Retries are not delegated to
// resty: callers run their own attempt loop so attempt counts and the reason
// a call stopped stay observable.
func NewHTTPClient(accept, userAgent string, timeout time.Duration) *resty.Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := resty.New().
		SetHeader("Accept", accept).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}
