package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

var ErrEmptyItemName = errors.New("item name cannot be empty")

// UpstreamError marks a failure of the proxy or the retailer site rather
// than of the caller's input.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("fetch html: %v", e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15",
}

// Fetcher retrieves retailer search pages through a rendering proxy so that
// bot countermeasures do not block the request.
type Fetcher struct {
	httpClient   *http.Client
	proxyBaseURL string
	apiKey       string
	userAgents   []string
}

func NewFetcher(proxyBaseURL, apiKey string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		httpClient:   &http.Client{Timeout: timeout},
		proxyBaseURL: proxyBaseURL,
		apiKey:       apiKey,
		userAgents:   defaultUserAgents,
	}
}

// Fetch downloads the target page via the proxy. Each call picks a fresh
// user agent from the pool.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	proxyURL := fmt.Sprintf("%s?api_key=%s&url=%s",
		f.proxyBaseURL,
		url.QueryEscape(f.apiKey),
		url.QueryEscape(target),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	req.Header.Set("User-Agent", f.userAgents[rand.IntN(len(f.userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &UpstreamError{Err: fmt.Errorf("proxy returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	return string(body), nil
}
