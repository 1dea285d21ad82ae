package fetcher

import "pricetracker/internal/locale"

// Quote is a product's price as read from a retailer page. A Quote is a
// value: it is built once per fetch and never modified afterwards.
type Quote struct {
	ProductName      string  `json:"productName"`
	MinPrice         float64 `json:"minPrice"`
	AvgPrice         float64 `json:"avgPrice"`
	MinPriceDisplay  string  `json:"minPriceDisplay"`
	AvgPriceDisplay  string  `json:"avgPriceDisplay"`
	SourceProductURL string  `json:"sourceProductUrl"`
	IsFallback       bool    `json:"isFallback"`
}

// NewQuote builds a live quote, filling in the display strings.
func NewQuote(productName string, minPrice, avgPrice float64, sourceProductURL string) Quote {
	return Quote{
		ProductName:      productName,
		MinPrice:         minPrice,
		AvgPrice:         avgPrice,
		MinPriceDisplay:  locale.FormatPrice(minPrice),
		AvgPriceDisplay:  locale.FormatPrice(avgPrice),
		SourceProductURL: sourceProductURL,
	}
}

// AsFallback returns a copy of q marked as degraded data.
func (q Quote) AsFallback() Quote {
	q.IsFallback = true
	return q
}

// Result represents the outcome of one URL in a batch fetch.
// Results are returned in the same order as the requested URLs.
type Result struct {
	// URL is the requested page
	URL string

	// Quote is the live or fallback quote
	Quote Quote

	// Error contains any error that occurred during the fetch operation.
	// If Error is not nil, Quote should be considered invalid.
	Error error
}
