package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricetracker/internal/locale"
)

const (
	pricewatchNameSelector  = "h1"
	pricewatchPriceSelector = "td.shop-price"
	pricewatchLinkSelector  = "a[href]"
)

var pricewatchIDPattern = regexp.MustCompile(`/pricewatch/(\d+)`)

// Pricewatch extracts prices from a price comparison listing where each shop
// is a table row and the cheapest offer comes first.
type Pricewatch struct {
	baseURL         string
	historyTemplate string
}

// NewPricewatch creates an extractor for pages under baseURL. historyTemplate
// takes the numeric product id through a single %s verb.
func NewPricewatch(baseURL, historyTemplate string) *Pricewatch {
	return &Pricewatch{
		baseURL:         baseURL,
		historyTemplate: historyTemplate,
	}
}

// Name implements Extractor
func (p *Pricewatch) Name() string {
	return "pricewatch"
}

// Supports implements Extractor
func (p *Pricewatch) Supports(rawURL string) bool {
	return p.baseURL != "" && hasPrefixFold(rawURL, p.baseURL)
}

// ProductName implements Extractor
func (p *Pricewatch) ProductName(doc *goquery.Document) (string, error) {
	heading := doc.Find(pricewatchNameSelector).First()
	if heading.Length() == 0 {
		return "", ErrNameNotFound
	}
	return strings.TrimSpace(heading.Text()), nil
}

// PriceAndURL implements Extractor
func (p *Pricewatch) PriceAndURL(doc *goquery.Document) (Listing, error) {
	cell := doc.Find(pricewatchPriceSelector).First()
	if cell.Length() == 0 {
		return Listing{}, ErrPriceNotFound
	}

	raw := locale.Clean(cell.Text())
	if _, err := locale.ParseStrict(raw); err != nil {
		return Listing{}, &Error{Reason: ErrInvalidPrice.Reason, Detail: fmt.Sprintf("%q", raw)}
	}

	href, ok := cell.Find(pricewatchLinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Listing{}, ErrURLNotFound
	}

	return Listing{
		RawPrice:   raw,
		ProductURL: strings.TrimSpace(href),
	}, nil
}

// Prices implements Extractor
func (p *Pricewatch) Prices(doc *goquery.Document) []float64 {
	var prices []float64
	doc.Find(pricewatchPriceSelector).Each(func(_ int, cell *goquery.Selection) {
		if v, err := locale.ParseStrict(cell.Text()); err == nil {
			prices = append(prices, v)
		}
	})
	return prices
}

// HistoryURL implements Extractor
func (p *Pricewatch) HistoryURL(productURL string) (string, error) {
	if p.historyTemplate == "" {
		return "", fmt.Errorf("no history endpoint configured for %s", p.Name())
	}
	m := pricewatchIDPattern.FindStringSubmatch(productURL)
	if m == nil {
		return "", fmt.Errorf("no product id in %q", productURL)
	}
	return fmt.Sprintf(p.historyTemplate, m[1]), nil
}
