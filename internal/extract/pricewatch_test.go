package extract

import (
	"errors"
	"strings"
	"testing"
)

const testBaseURL = "https://tweakers.net/pricewatch/"

const productPage = `<!DOCTYPE html>
<html lang="nl">
	<body>
		<h1>
			Samsung 990 Pro 2TB
		</h1>
		<h1>Second heading</h1>
		<table class="shop-listing">
			<tr>
				<td class="shop-name">Shop A</td>
				<td class="shop-price"><a href="https://tweakers.net/clickout/1/">€ 1.149,-</a></td>
			</tr>
			<tr>
				<td class="shop-name">Shop B</td>
				<td class="shop-price"><a href="/clickout/2/">€ 1.251,00</a></td>
			</tr>
			<tr>
				<td class="shop-name">Shop C</td>
				<td class="shop-price">niet leverbaar</td>
			</tr>
		</table>
	</body>
</html>`

func TestPricewatch_Supports(t *testing.T) {
	p := NewPricewatch(testBaseURL, "")

	tests := []struct {
		url  string
		want bool
	}{
		{"https://tweakers.net/pricewatch/1866548/samsung-990-pro-2tb.html", true},
		{"HTTPS://TWEAKERS.NET/pricewatch/1/", true},
		{"https://tweakers.net/nieuws/123/", false},
		{"https://example.com/pricewatch/1/", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := p.Supports(tt.url); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestPricewatch_ProductName(t *testing.T) {
	doc, err := Parse(strings.NewReader(productPage))
	if err != nil {
		t.Fatalf("Parse() returned unexpected error: %v", err)
	}

	p := NewPricewatch(testBaseURL, "")
	name, err := p.ProductName(doc)
	if err != nil {
		t.Fatalf("ProductName() returned unexpected error: %v", err)
	}
	if name != "Samsung 990 Pro 2TB" {
		t.Errorf("ProductName() = %q, want %q", name, "Samsung 990 Pro 2TB")
	}
}

func TestPricewatch_ProductName_Missing(t *testing.T) {
	doc, _ := Parse(strings.NewReader(`<html><body><h2>not a title</h2></body></html>`))

	_, err := NewPricewatch(testBaseURL, "").ProductName(doc)
	if !errors.Is(err, ErrNameNotFound) {
		t.Errorf("ProductName() error = %v, want ErrNameNotFound", err)
	}
}

func TestPricewatch_PriceAndURL(t *testing.T) {
	doc, _ := Parse(strings.NewReader(productPage))

	listing, err := NewPricewatch(testBaseURL, "").PriceAndURL(doc)
	if err != nil {
		t.Fatalf("PriceAndURL() returned unexpected error: %v", err)
	}
	if listing.RawPrice != "1.149,-" {
		t.Errorf("RawPrice = %q, want %q", listing.RawPrice, "1.149,-")
	}
	if listing.ProductURL != "https://tweakers.net/clickout/1/" {
		t.Errorf("ProductURL = %q, want %q", listing.ProductURL, "https://tweakers.net/clickout/1/")
	}
}

func TestPricewatch_PriceAndURL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr error
	}{
		{
			name:    "no price cell",
			html:    `<html><body><h1>Product</h1><table><tr><td>x</td></tr></table></body></html>`,
			wantErr: ErrPriceNotFound,
		},
		{
			name:    "price cell without link",
			html:    `<html><body><h1>Product</h1><table><tr><td class="shop-price">€ 12,95</td></tr></table></body></html>`,
			wantErr: ErrURLNotFound,
		},
		{
			name:    "price cell without a number",
			html:    `<html><body><h1>Product</h1><table><tr><td class="shop-price"><a href="/x">op aanvraag</a></td></tr></table></body></html>`,
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "link with empty href",
			html:    `<html><body><table><tr><td class="shop-price"><a href=" ">€ 5,00</a></td></tr></table></body></html>`,
			wantErr: ErrURLNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _ := Parse(strings.NewReader(tt.html))

			_, err := NewPricewatch(testBaseURL, "").PriceAndURL(doc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PriceAndURL() error = %v, want %v", err, tt.wantErr)
			}

			var extractErr *Error
			if !errors.As(err, &extractErr) {
				t.Errorf("PriceAndURL() error %T is not *extract.Error", err)
			}
		})
	}
}

func TestPricewatch_Prices(t *testing.T) {
	doc, _ := Parse(strings.NewReader(productPage))

	prices := NewPricewatch(testBaseURL, "").Prices(doc)
	want := []float64{1149, 1251}
	if len(prices) != len(want) {
		t.Fatalf("Prices() = %v, want %v", prices, want)
	}
	for i := range want {
		if prices[i] != want[i] {
			t.Errorf("Prices()[%d] = %v, want %v", i, prices[i], want[i])
		}
	}
}

func TestPricewatch_HistoryURL(t *testing.T) {
	p := NewPricewatch(testBaseURL, "https://tweakers.net/ajax/price_chart/%s/nl/")

	got, err := p.HistoryURL("https://tweakers.net/pricewatch/1866548/samsung-990-pro-2tb.html")
	if err != nil {
		t.Fatalf("HistoryURL() returned unexpected error: %v", err)
	}
	if want := "https://tweakers.net/ajax/price_chart/1866548/nl/"; got != want {
		t.Errorf("HistoryURL() = %q, want %q", got, want)
	}

	if _, err := p.HistoryURL("https://tweakers.net/pricewatch/zoeken/"); err == nil {
		t.Error("HistoryURL() expected error for URL without product id, got nil")
	}

	if _, err := NewPricewatch(testBaseURL, "").HistoryURL("https://tweakers.net/pricewatch/1/"); err == nil {
		t.Error("HistoryURL() expected error without template, got nil")
	}
}

func TestExtract_ResolvesRelativeURL(t *testing.T) {
	html := `<html><body><h1>Product</h1><table><tr><td class="shop-price"><a href="/clickout/9/">€ 7,50</a></td></tr></table></body></html>`
	doc, _ := Parse(strings.NewReader(html))

	got, err := Extract(NewPricewatch(testBaseURL, ""), doc, "https://tweakers.net/pricewatch/1/product.html")
	if err != nil {
		t.Fatalf("Extract() returned unexpected error: %v", err)
	}
	if got.Listing.ProductURL != "https://tweakers.net/clickout/9/" {
		t.Errorf("ProductURL = %q, want %q", got.Listing.ProductURL, "https://tweakers.net/clickout/9/")
	}
	if got.ProductName != "Product" {
		t.Errorf("ProductName = %q, want %q", got.ProductName, "Product")
	}
	if len(got.Prices) != 1 || got.Prices[0] != 7.5 {
		t.Errorf("Prices = %v, want [7.5]", got.Prices)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	pw := NewPricewatch(testBaseURL, "")
	r := NewRegistry(pw)

	ex, ok := r.Lookup("https://tweakers.net/pricewatch/1/")
	if !ok || ex != Extractor(pw) {
		t.Errorf("Lookup() = %v, %v, want pricewatch extractor", ex, ok)
	}

	if _, ok := r.Lookup("https://example.com/"); ok {
		t.Error("Lookup() matched an unsupported URL")
	}

	var nilRegistry *Registry
	if _, ok := nilRegistry.Lookup("https://tweakers.net/pricewatch/1/"); ok {
		t.Error("nil Registry Lookup() should not match")
	}
}
