// Package catalog is the storage side of price tracking: the products whose
// prices are followed and the operations the refresher needs on them.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = errors.New("tracked product not found")

// TrackedProduct is a catalog entry with an optional competitor URL.
type TrackedProduct struct {
	ID            int64     `json:"id"`
	DisplayName   string    `json:"displayName"`
	TrackingURL   string    `json:"trackingUrl,omitempty"`
	CurrentPrice  float64   `json:"currentPrice"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	// LastCheckedAt is when a fetch last ran for the product, whether or not
	// it changed the price. Zero when never checked.
	LastCheckedAt time.Time `json:"lastCheckedAt"`
}

// Tracked reports whether the product has a URL to fetch prices from.
// Products without one keep their price forever.
func (p TrackedProduct) Tracked() bool {
	return strings.TrimSpace(p.TrackingURL) != ""
}

// CheckedAt returns the latest moment the product's price was known to be
// current: the later of LastUpdatedAt and LastCheckedAt.
func (p TrackedProduct) CheckedAt() time.Time {
	if p.LastCheckedAt.After(p.LastUpdatedAt) {
		return p.LastCheckedAt
	}
	return p.LastUpdatedAt
}

// Store reads tracked products and writes back prices. Both timestamps are
// owned by the store: UpdatePrice bumps LastUpdatedAt and LastCheckedAt,
// MarkChecked bumps only LastCheckedAt and never touches the price.
type Store interface {
	FindMany(ctx context.Context) ([]TrackedProduct, error)
	FindUnique(ctx context.Context, id int64) (TrackedProduct, error)
	UpdatePrice(ctx context.Context, id int64, price float64) (TrackedProduct, error)
	MarkChecked(ctx context.Context, id int64) (TrackedProduct, error)
}
