// Package refresher brings stored prices up to date with the retailer.
//
// A pass looks only at products that have a tracking URL and were not
// checked today, fetches them as a batch, and writes back the ones whose
// price moved. The rest are marked checked so later passes on the same day
// leave them alone. Failures are per product: a product that cannot be fetched or
// saved keeps its previous price and the pass carries on.
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"pricetracker/internal/catalog"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/freshness"
)

// QuoteFetcher fetches quotes for many URLs at once, one result per URL in order.
type QuoteFetcher interface {
	FetchPrices(ctx context.Context, urls []string, fallbacks []*fetcher.Quote) []fetcher.Result
}

// Summary counts what a refresh pass did.
type Summary struct {
	Total     int
	Skipped   int
	Due       int
	Updated   int
	Unchanged int
	Fallback  int
	Failed    int
}

// Refresher runs refresh passes.
type Refresher struct {
	store   catalog.Store
	fetcher QuoteFetcher
	policy  *freshness.Policy
	logger  *slog.Logger
}

// New creates a Refresher
func New(store catalog.Store, f QuoteFetcher, policy *freshness.Policy, logger *slog.Logger) *Refresher {
	if policy == nil {
		policy = freshness.NewPolicy(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:   store,
		fetcher: f,
		policy:  policy,
		logger:  logger,
	}
}

// Due reports whether p should be fetched in this pass. A product checked
// today is not due even when the check left its price unchanged.
func (r *Refresher) Due(p catalog.TrackedProduct) bool {
	return p.Tracked() && !r.policy.IsFreshToday(p.CheckedAt())
}

// RefreshAll loads every product from the store and refreshes it.
func (r *Refresher) RefreshAll(ctx context.Context) ([]catalog.TrackedProduct, Summary, error) {
	products, err := r.store.FindMany(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to load tracked products: %w", err)
	}
	out, summary := r.RefreshPrices(ctx, products)
	return out, summary, nil
}

// RefreshPrices refreshes the due products among products. The result has
// one entry per input, in input order: the stored row for updated products,
// the input unchanged for everything else.
func (r *Refresher) RefreshPrices(ctx context.Context, products []catalog.TrackedProduct) ([]catalog.TrackedProduct, Summary) {
	out := make([]catalog.TrackedProduct, len(products))
	copy(out, products)

	summary := Summary{Total: len(products)}

	var (
		due       []int
		urls      []string
		fallbacks []*fetcher.Quote
	)
	for i, p := range products {
		if !r.Due(p) {
			summary.Skipped++
			continue
		}
		fallback := fallbackQuote(p)
		due = append(due, i)
		urls = append(urls, p.TrackingURL)
		fallbacks = append(fallbacks, &fallback)
	}
	summary.Due = len(due)

	if len(due) == 0 {
		r.logger.Info("price refresh: nothing due", "total", summary.Total)
		return out, summary
	}

	results := r.fetcher.FetchPrices(ctx, urls, fallbacks)

	for k, idx := range due {
		p := out[idx]
		if k >= len(results) {
			summary.Failed++
			r.logger.Warn("price refresh: no result for product", "product_id", p.ID)
			continue
		}
		res := results[k]

		if res.Error != nil {
			summary.Failed++
			r.logger.Warn("price refresh: fetch failed",
				"product_id", p.ID,
				"url", p.TrackingURL,
				"error", res.Error)
			continue
		}

		if res.Quote.IsFallback {
			summary.Fallback++
			r.markChecked(ctx, p)
			continue
		}

		if sameCents(res.Quote.MinPrice, p.CurrentPrice) {
			summary.Unchanged++
			r.markChecked(ctx, p)
			continue
		}

		updated, err := r.store.UpdatePrice(ctx, p.ID, res.Quote.MinPrice)
		if err != nil {
			summary.Failed++
			r.logger.Warn("price refresh: update failed",
				"product_id", p.ID,
				"price", res.Quote.MinPrice,
				"error", err)
			continue
		}

		r.logger.Debug("price refresh: price changed",
			"product_id", p.ID,
			"old", p.CurrentPrice,
			"new", updated.CurrentPrice)
		out[idx] = updated
		summary.Updated++
	}

	r.logger.Info("price refresh complete",
		"total", summary.Total,
		"due", summary.Due,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"fallback", summary.Fallback,
		"failed", summary.Failed)

	return out, summary
}

// markChecked records that p was fetched today without a price write. A
// canceled pass records nothing, so the product is retried.
func (r *Refresher) markChecked(ctx context.Context, p catalog.TrackedProduct) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.store.MarkChecked(ctx, p.ID); err != nil {
		r.logger.Warn("price refresh: mark checked failed",
			"product_id", p.ID,
			"error", err)
	}
}

// fallbackQuote is what a failed fetch resolves to: the stored price, so a
// total failure never clears it.
func fallbackQuote(p catalog.TrackedProduct) fetcher.Quote {
	return fetcher.NewQuote(p.DisplayName, p.CurrentPrice, p.CurrentPrice, p.TrackingURL)
}

// sameCents compares prices at the precision they are stored with.
func sameCents(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
