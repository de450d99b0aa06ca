// Package querybridgectl implements the command line client for the
// querybridge HTTP API.
package querybridgectl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("querybridgectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "querybridge API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")
	hour := fs.Int("hour", -1, "hour of day for greet (omit to use server time)")
	text := fs.String("text", "", "text for process/analyze")
	query := fs.String("query", "", "search query or natural language query")
	results := fs.Int("results", 0, "number of search results (1-20)")
	item := fs.String("item", "", "item name for scrape")
	retailer := fs.String("retailer", "amazon", "retailer for scrape: amazon, walmart or target")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := http.MethodPost
	path := ""
	var payload map[string]any
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "greet":
		path = "/v1/greet"
		payload = map[string]any{}
		if *hour >= 0 {
			payload["hour"] = *hour
		}
	case "process":
		path = "/v1/process"
		payload = map[string]any{"text": *text}
	case "analyze":
		path = "/v1/analyze"
		payload = map[string]any{"text": *text}
	case "search":
		path = "/v1/search"
		payload = map[string]any{"query": *query}
		if *results > 0 {
			payload["num_results"] = *results
		}
	case "scrape":
		switch strings.ToLower(strings.TrimSpace(*retailer)) {
		case "amazon":
			path = "/v1/scrape_amazon"
		case "walmart":
			path = "/v1/scrape_walmart"
		case "target":
			path = "/v1/scrape_target"
		default:
			_, _ = fmt.Fprintf(stderr, "unknown retailer %q\n\n", *retailer)
			writeUsage(stderr)
			return 2
		}
		payload = map[string]any{"item_name": *item}
	case "generate-query":
		path = "/v1/generate_query"
		payload = map[string]any{"natural_language_query": *query}
	case "fetch-data":
		path = "/v1/fetch_data"
		payload = map[string]any{"natural_language_query": *query}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload map[string]any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: querybridgectl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health           GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready            GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  greet            POST /v1/greet (-hour)")
	_, _ = fmt.Fprintln(w, "  process          POST /v1/process (-text)")
	_, _ = fmt.Fprintln(w, "  analyze          POST /v1/analyze (-text)")
	_, _ = fmt.Fprintln(w, "  search           POST /v1/search (-query, -results)")
	_, _ = fmt.Fprintln(w, "  scrape           POST /v1/scrape_<retailer> (-retailer, -item)")
	_, _ = fmt.Fprintln(w, "  generate-query   POST /v1/generate_query (-query)")
	_, _ = fmt.Fprintln(w, "  fetch-data       POST /v1/fetch_data (-query)")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
