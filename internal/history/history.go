// Package history fetches a product's price history for charting.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"

	"pricetracker/internal/fetcher"
)

// DefaultField is the JSON field holding the series when none is configured.
const DefaultField = "dataset"

// ErrMalformedHistory is returned when the response has no usable series.
var ErrMalformedHistory = errors.New("malformed history response")

// Point is one element of the history array exactly as the endpoint sent
// it. Dates and prices come in whatever shape the retailer uses, so parsing
// them is left to the consumer.
type Point = json.RawMessage

// Client fetches price history series
type Client struct {
	field  string
	client *resty.Client
}

// NewClient creates a history client reading the array named field.
func NewClient(field, userAgent string, timeout time.Duration) *Client {
	if field == "" {
		field = DefaultField
	}
	return &Client{
		field:  field,
		client: fetcher.NewHTTPClient(fetcher.AcceptJSON, userAgent, timeout),
	}
}

// FetchHistory retrieves the chronological series at sourceURI.
func (c *Client) FetchHistory(ctx context.Context, sourceURI string) ([]Point, error) {
	if sourceURI == "" {
		return nil, fetcher.NewConfigurationError("history url required")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		Get(sourceURI)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history from %s: %w", sourceURI, fetcher.NewNetworkError(err))
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("history endpoint returned status %d: %w", resp.StatusCode(), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	return decode([]byte(resp.String()), c.field)
}

func decode(body []byte, field string) ([]Point, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}

	raw, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing", ErrMalformedHistory, field)
	}

	var points []Point
	if err := json.Unmarshal(raw, &points); err != nil || points == nil {
		return nil, fmt.Errorf("%w: field %q is not an array", ErrMalformedHistory, field)
	}
	return points, nil
}
