// Package extract pulls a product name, price and canonical product URL out
// of a retailer's product page. Each supported retailer gets its own
// Extractor; the Registry picks one by URL prefix so the fetcher never needs
// to know which markup it is dealing with.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Error reports that the page did not have the shape an extractor expects.
type Error struct {
	Reason string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extraction failed: %s: %s", e.Reason, e.Detail)
	}
	return "extraction failed: " + e.Reason
}

// Is matches on Reason so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

var (
	ErrNameNotFound  = &Error{Reason: "name not found"}
	ErrPriceNotFound = &Error{Reason: "price not found"}
	ErrInvalidPrice  = &Error{Reason: "invalid price format"}
	ErrURLNotFound   = &Error{Reason: "url not found"}
)

// Listing is the cheapest offer on a product page.
type Listing struct {
	// RawPrice is the cleaned price text in the retailer's notation, e.g. "1.234,56".
	RawPrice   string
	ProductURL string
}

// Extractor knows the markup of one retailer.
type Extractor interface {
	// Name identifies the retailer in logs.
	Name() string

	// Supports reports whether rawURL belongs to this retailer.
	Supports(rawURL string) bool

	// ProductName returns the product's display name.
	ProductName(doc *goquery.Document) (string, error)

	// PriceAndURL returns the first listed price and the link inside its cell.
	PriceAndURL(doc *goquery.Document) (Listing, error)

	// Prices returns every listed price on the page that parses, in page order.
	Prices(doc *goquery.Document) []float64

	// HistoryURL maps a product page URL to the retailer's price history endpoint.
	HistoryURL(productURL string) (string, error)
}

// Extraction is everything pulled from one page.
type Extraction struct {
	ProductName string
	Listing     Listing
	Prices      []float64
}

// Parse reads an HTML body into a queryable document.
func Parse(body io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// Extract runs ex against doc. A relative product URL is resolved against pageURL.
func Extract(ex Extractor, doc *goquery.Document, pageURL string) (Extraction, error) {
	name, err := ex.ProductName(doc)
	if err != nil {
		return Extraction{}, err
	}

	listing, err := ex.PriceAndURL(doc)
	if err != nil {
		return Extraction{}, err
	}
	listing.ProductURL = resolve(pageURL, listing.ProductURL)

	return Extraction{
		ProductName: name,
		Listing:     listing,
		Prices:      ex.Prices(doc),
	}, nil
}

func resolve(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil || refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// Registry dispatches a URL to the extractor of the retailer it belongs to.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry; earlier extractors win when several match.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Lookup returns the extractor supporting rawURL.
func (r *Registry) Lookup(rawURL string) (Extractor, bool) {
	if r == nil {
		return nil, false
	}
	for _, ex := range r.extractors {
		if ex.Supports(rawURL) {
			return ex, true
		}
	}
	return nil, false
}

// hasPrefixFold is strings.HasPrefix ignoring ASCII case.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
