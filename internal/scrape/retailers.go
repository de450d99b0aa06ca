// Package scrape extracts product listings from retailer search pages
// fetched through a rendering proxy.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/querybridge/querybridge/internal/observability"
)

const (
	amazonBaseURL  = "https://www.amazon.com"
	walmartBaseURL = "https://www.walmart.com"
	targetBaseURL  = "https://www.target.com"

	notFound = "Not found"

	targetResultLimit = 10
)

type Product struct {
	Name  string `json:"product_name"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// Client scrapes retailer search results for an item name.
type Client struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

func NewClient(fetcher *Fetcher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{fetcher: fetcher, logger: logger}
}

func (c *Client) Amazon(ctx context.Context, itemName string) ([]Product, error) {
	return c.scrape(ctx, "amazon", itemName, amazonBaseURL+"/s?k=%s", parseAmazon)
}

func (c *Client) Walmart(ctx context.Context, itemName string) ([]Product, error) {
	return c.scrape(ctx, "walmart", itemName, walmartBaseURL+"/search?q=%s", parseWalmart)
}

func (c *Client) Target(ctx context.Context, itemName string) ([]Product, error) {
	return c.scrape(ctx, "target", itemName, targetBaseURL+"/s?searchTerm=%s", parseTarget)
}

func (c *Client) scrape(ctx context.Context, retailer, itemName, urlFormat string, parse func(*html.Node, string) []Product) ([]Product, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, ErrEmptyItemName
	}

	searchURL := fmt.Sprintf(urlFormat, url.QueryEscape(itemName))
	page, err := c.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("parse html: %w", err)}
	}

	products := parse(doc, searchURL)
	observability.CountScrapeResults(retailer, len(products))
	c.logger.DebugContext(ctx, "scrape complete",
		slog.String("retailer", retailer),
		slog.String("item", itemName),
		slog.Int("products", len(products)),
	)
	return products, nil
}

func parseAmazon(doc *html.Node, searchURL string) []Product {
	cards := findAll(doc, func(n *html.Node) bool {
		return elementIs(n, "div") && attrValue(n, "data-component-type") == "s-search-result"
	})

	products := make([]Product, 0, len(cards))
	for _, card := range cards {
		product := Product{Name: notFound, Price: notFound, URL: searchURL}

		if title := findFirst(card, func(n *html.Node) bool {
			return elementIs(n, "h2") && classContains(n, "a-size-mini")
		}); title != nil {
			if span := findFirst(title, func(n *html.Node) bool { return elementIs(n, "span") }); span != nil {
				product.Name = textContent(span)
			}
		}

		if price := findFirst(card, func(n *html.Node) bool {
			return elementIs(n, "span") && classContains(n, "a-offscreen")
		}); price != nil {
			product.Price = textContent(price)
		}

		if link := findFirst(card, func(n *html.Node) bool {
			return elementIs(n, "a") && classContains(n, "a-link-normal")
		}); link != nil {
			if href := attrValue(link, "href"); href != "" {
				product.URL = amazonBaseURL + href
			}
		}

		products = append(products, product)
	}
	return products
}

func parseWalmart(doc *html.Node, searchURL string) []Product {
	cards := findAll(doc, func(n *html.Node) bool {
		return elementIs(n, "div") && hasAttr(n, "data-item-id")
	})

	products := make([]Product, 0, len(cards))
	for _, card := range cards {
		product := Product{Name: notFound, Price: notFound, URL: searchURL}

		if title := findFirst(card, func(n *html.Node) bool {
			return elementIs(n, "span") && attrValue(n, "data-automation-id") == "product-title"
		}); title != nil {
			product.Name = textContent(title)
		}

		product.Price = walmartPrice(card)

		if link := findFirst(card, func(n *html.Node) bool {
			return elementIs(n, "a") && hasAttr(n, "link-identifier")
		}); link != nil {
			if href := attrValue(link, "href"); href != "" {
				product.URL = walmartURL(href)
			}
		}

		products = append(products, product)
	}
	return products
}

// walmartPrice reassembles the price from the split currency, dollar and
// cent spans Walmart renders.
func walmartPrice(card *html.Node) string {
	priceDiv := findFirst(card, func(n *html.Node) bool {
		return elementIs(n, "div") && attrValue(n, "data-automation-id") == "product-price"
	})
	if priceDiv == nil {
		return notFound
	}

	dollarSign := findFirst(priceDiv, func(n *html.Node) bool {
		return elementIs(n, "span") && strings.Contains(directText(n), "$")
	})
	major := findFirst(priceDiv, func(n *html.Node) bool {
		return elementIs(n, "span") && isAllDigits(directText(n))
	})
	if dollarSign == nil || major == nil {
		return notFound
	}

	cents := "00"
	if minor := nextElementSibling(major, "span"); minor != nil {
		cents = directText(minor)
	}
	return directText(dollarSign) + directText(major) + "." + cents
}

// walmartURL unwraps sponsored redirect links carrying the real target in
// the rd query parameter.
func walmartURL(href string) string {
	if strings.Contains(href, "rd=") {
		parsed, err := url.Parse(href)
		if err != nil {
			return href
		}
		if rd := parsed.Query().Get("rd"); rd != "" {
			return rd
		}
		return href
	}
	return walmartBaseURL + href
}

func parseTarget(doc *html.Node, searchURL string) []Product {
	titles := findAll(doc, func(n *html.Node) bool {
		return attrValue(n, "data-test") == "product-title"
	})
	prices := findAll(doc, func(n *html.Node) bool {
		return attrValue(n, "data-test") == "current-price"
	})

	if len(titles) > targetResultLimit {
		titles = titles[:targetResultLimit]
	}

	products := make([]Product, 0, len(titles))
	for i, title := range titles {
		product := Product{
			Name:  textContent(title),
			Price: notFound,
			URL:   searchURL,
		}
		if href := attrValue(title, "href"); href != "" {
			product.URL = targetBaseURL + href
		}
		if i < len(prices) {
			product.Price = textContent(prices[i])
		}
		products = append(products, product)
	}
	return products
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
