package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const amazonFixture = `
<html><body>
<div data-component-type="s-search-result">
  <h2 class="a-size-mini s-line-clamp-2"><a><span>Wireless Mouse</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$24.99</span></span>
  <a class="a-link-normal s-no-outline" href="/dp/B0TEST"></a>
</div>
<div data-component-type="s-search-result">
  <span class="a-price"><span class="a-offscreen">$9.50</span></span>
</div>
</body></html>`

const walmartFixture = `
<html><body>
<div data-item-id="123">
  <span data-automation-id="product-title">Office Chair</span>
  <div data-automation-id="product-price">
    <span>$</span><span>149</span><span>97</span>
  </div>
  <a link-identifier="123" href="/ip/office-chair/123"></a>
</div>
<div data-item-id="456">
  <span data-automation-id="product-title">Sponsored Chair</span>
  <a link-identifier="456" href="/sp/track?rd=https%3A%2F%2Fwww.walmart.com%2Fip%2Fsponsored%2F456"></a>
</div>
</body></html>`

const targetFixture = `
<html><body>
<a data-test="product-title" href="/p/desk-lamp/-/A-1">Desk Lamp</a>
<span data-test="current-price">$19.99</span>
<a data-test="product-title" href="/p/floor-lamp/-/A-2">Floor Lamp</a>
</body></html>`

func newTestClient(t *testing.T, page string) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") == "" {
			t.Error("expected api_key query parameter")
		}
		if r.URL.Query().Get("url") == "" {
			t.Error("expected url query parameter")
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.URL, "test-key", 5*time.Second)
	return NewClient(fetcher, nil), server
}

func TestAmazonScrape(t *testing.T) {
	client, _ := newTestClient(t, amazonFixture)

	products, err := client.Amazon(context.Background(), "wireless mouse")
	if err != nil {
		t.Fatalf("Amazon() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}

	first := products[0]
	if first.Name != "Wireless Mouse" {
		t.Fatalf("Name = %q", first.Name)
	}
	if first.Price != "$24.99" {
		t.Fatalf("Price = %q", first.Price)
	}
	if first.URL != "https://www.amazon.com/dp/B0TEST" {
		t.Fatalf("URL = %q", first.URL)
	}

	second := products[1]
	if second.Name != "Not found" {
		t.Fatalf("Name = %q, want Not found", second.Name)
	}
	if second.Price != "$9.50" {
		t.Fatalf("Price = %q", second.Price)
	}
}

func TestWalmartScrape(t *testing.T) {
	client, _ := newTestClient(t, walmartFixture)

	products, err := client.Walmart(context.Background(), "office chair")
	if err != nil {
		t.Fatalf("Walmart() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}

	first := products[0]
	if first.Name != "Office Chair" {
		t.Fatalf("Name = %q", first.Name)
	}
	if first.Price != "$149.97" {
		t.Fatalf("Price = %q", first.Price)
	}
	if first.URL != "https://www.walmart.com/ip/office-chair/123" {
		t.Fatalf("URL = %q", first.URL)
	}

	second := products[1]
	if second.URL != "https://www.walmart.com/ip/sponsored/456" {
		t.Fatalf("sponsored URL = %q", second.URL)
	}
	if second.Price != "Not found" {
		t.Fatalf("Price = %q, want Not found", second.Price)
	}
}

func TestTargetScrape(t *testing.T) {
	client, _ := newTestClient(t, targetFixture)

	products, err := client.Target(context.Background(), "lamp")
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}

	if products[0].Name != "Desk Lamp" || products[0].Price != "$19.99" {
		t.Fatalf("first product = %+v", products[0])
	}
	if products[0].URL != "https://www.target.com/p/desk-lamp/-/A-1" {
		t.Fatalf("URL = %q", products[0].URL)
	}
	if products[1].Price != "Not found" {
		t.Fatalf("second price = %q, want Not found", products[1].Price)
	}
}

func TestScrapeRejectsEmptyItemName(t *testing.T) {
	client, _ := newTestClient(t, amazonFixture)
	if _, err := client.Amazon(context.Background(), "  "); !errors.Is(err, ErrEmptyItemName) {
		t.Fatalf("error = %v, want ErrEmptyItemName", err)
	}
}

func TestScrapeEmptyPageYieldsNoProducts(t *testing.T) {
	client, _ := newTestClient(t, "<html><body></body></html>")
	products, err := client.Amazon(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Amazon() error = %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("products = %d, want 0", len(products))
	}
}

func TestScrapeProxyFailureIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClient(NewFetcher(server.URL, "test-key", time.Second), nil)
	_, err := client.Amazon(context.Background(), "anything")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
}
