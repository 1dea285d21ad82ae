package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pricetracker/internal/catalog"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/notify"
)

// MockStore is an in-memory catalog.Store for testing. Update failures are
// injected per product id through UpdateErrors. Now stamps the timestamps
// the store owns and defaults to time.Now.
type MockStore struct {
	mu           sync.Mutex
	Products     map[int64]catalog.TrackedProduct
	UpdateErrors map[int64]error
	FindManyErr  error
	UpdateCalls  []UpdateCall
	CheckCalls   []int64
	Now          func() time.Time
}

// UpdateCall records one UpdatePrice call
type UpdateCall struct {
	ID    int64
	Price float64
}

// NewMockStore creates a store holding products
func NewMockStore(products ...catalog.TrackedProduct) *MockStore {
	s := &MockStore{
		Products:     make(map[int64]catalog.TrackedProduct),
		UpdateErrors: make(map[int64]error),
	}
	for _, p := range products {
		s.Products[p.ID] = p
	}
	return s
}

// FindMany implements catalog.Store
func (s *MockStore) FindMany(ctx context.Context) ([]catalog.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FindManyErr != nil {
		return nil, s.FindManyErr
	}
	out := make([]catalog.TrackedProduct, 0, len(s.Products))
	for _, p := range s.Products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindUnique implements catalog.Store
func (s *MockStore) FindUnique(ctx context.Context, id int64) (catalog.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.Products[id]
	if !ok {
		return catalog.TrackedProduct{}, catalog.ErrNotFound
	}
	return p, nil
}

// UpdatePrice implements catalog.Store
func (s *MockStore) UpdatePrice(ctx context.Context, id int64, price float64) (catalog.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.UpdateCalls = append(s.UpdateCalls, UpdateCall{ID: id, Price: price})
	if err := s.UpdateErrors[id]; err != nil {
		return catalog.TrackedProduct{}, err
	}
	p, ok := s.Products[id]
	if !ok {
		return catalog.TrackedProduct{}, catalog.ErrNotFound
	}
	now := s.now()
	p.CurrentPrice = price
	p.LastUpdatedAt = now
	p.LastCheckedAt = now
	s.Products[id] = p
	return p, nil
}

// MarkChecked implements catalog.Store
func (s *MockStore) MarkChecked(ctx context.Context, id int64) (catalog.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CheckCalls = append(s.CheckCalls, id)
	p, ok := s.Products[id]
	if !ok {
		return catalog.TrackedProduct{}, catalog.ErrNotFound
	}
	p.LastCheckedAt = s.now()
	s.Products[id] = p
	return p, nil
}

// Checks returns a copy of the ids passed to MarkChecked
func (s *MockStore) Checks() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.CheckCalls...)
}

func (s *MockStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Updates returns a copy of the recorded UpdatePrice calls
func (s *MockStore) Updates() []UpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UpdateCall(nil), s.UpdateCalls...)
}

// MockQuoteFetcher is a mock batch fetcher for testing
type MockQuoteFetcher struct {
	FetchFunc func(ctx context.Context, url string, fallback *fetcher.Quote) (fetcher.Quote, error)

	mu   sync.Mutex
	URLs []string
}

// FetchPrices implements refresher.QuoteFetcher
func (m *MockQuoteFetcher) FetchPrices(ctx context.Context, urls []string, fallbacks []*fetcher.Quote) []fetcher.Result {
	m.mu.Lock()
	m.URLs = append(m.URLs, urls...)
	m.mu.Unlock()

	results := make([]fetcher.Result, len(urls))
	for i, u := range urls {
		var fallback *fetcher.Quote
		if i < len(fallbacks) {
			fallback = fallbacks[i]
		}
		results[i].URL = u
		if m.FetchFunc != nil {
			results[i].Quote, results[i].Error = m.FetchFunc(ctx, u, fallback)
		}
	}
	return results
}

// FetchPrice serves single-URL callers from the same FetchFunc
func (m *MockQuoteFetcher) FetchPrice(ctx context.Context, url string, fallback *fetcher.Quote) (fetcher.Quote, error) {
	res := m.FetchPrices(ctx, []string{url}, []*fetcher.Quote{fallback})[0]
	return res.Quote, res.Error
}

// MockNotifier records alerts for testing
type MockNotifier struct {
	mu     sync.Mutex
	Alerts []notify.Alert
	Err    error
}

// Notify implements notify.Notifier
func (m *MockNotifier) Notify(ctx context.Context, alert notify.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return m.Err
}

// Count returns the number of alerts received
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

// ProductPage renders a retailer product page listing one shop per price.
// Prices are written as display text, e.g. "€ 12,95" or "45,-".
func ProductPage(name string, prices ...string) string {
	var rows strings.Builder
	for i, price := range prices {
		fmt.Fprintf(&rows, `
			<tr>
				<td class="shop-name">Shop %d</td>
				<td class="shop-price"><a href="/clickout/%d/">%s</a></td>
			</tr>`, i+1, i+1, price)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="nl">
	<body>
		<h1>%s</h1>
		<table class="shop-listing">%s
		</table>
	</body>
</html>`, name, rows.String())
}
