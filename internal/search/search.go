// Package search performs web searches by scraping the DuckDuckGo HTML
// endpoint, which needs no API key.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/querybridge/querybridge/internal/observability"
)

var (
	ErrEmptyQuery         = errors.New("search query cannot be empty")
	ErrInvalidResultCount = errors.New("number of results must be between 1 and 20")
)

const (
	MinResults     = 1
	MaxResults     = 20
	DefaultResults = 5
)

// UpstreamError marks a failure of the search backend rather than of the
// caller's input.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("search failed: %v", e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

type Result struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Search returns up to numResults links for the query, numbered from 1.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if numResults < MinResults || numResults > MaxResults {
		return nil, ErrInvalidResultCount
	}

	searchURL := fmt.Sprintf("%s/html/?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	links, err := parseResultLinks(string(body), numResults)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	results := make([]Result, 0, len(links))
	for i, link := range links {
		results = append(results, Result{ID: i + 1, URL: link})
	}

	observability.CountSearchResults(len(results))
	c.logger.DebugContext(ctx, "search complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// parseResultLinks extracts result anchors from the DuckDuckGo HTML page.
func parseResultLinks(page string, limit int) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			if href := attrValue(n, "href"); href != "" {
				links = append(links, unwrapRedirect(href))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=... redirect wrapper to the
// real destination.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, candidate := range strings.Fields(attr.Val) {
			if candidate == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
