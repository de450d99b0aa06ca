package nl2sql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newGeminiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GeminiTranslator) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	translator, err := NewGeminiTranslator(GeminiConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewGeminiTranslator() error = %v", err)
	}
	return server, translator
}

func TestGeminiTranslateRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]any
	_, translator := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotPayload)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"SELECT id FROM users"}]}}]}`))
	})

	result, err := translator.Translate(context.Background(), Request{
		NaturalLanguage: "list all user ids",
		SchemaContext:   "\nTable: users\n  Column: id (bigint)\n",
		Dialect:         "PostgreSQL",
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT id FROM users" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != "gemini" || result.Model != "gemini-2.0-flash" {
		t.Fatalf("result = %+v", result)
	}

	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("key = %q", gotKey)
	}

	genConfig, ok := gotPayload["generationConfig"].(map[string]any)
	if !ok {
		t.Fatalf("generationConfig = %v", gotPayload["generationConfig"])
	}
	if genConfig["maxOutputTokens"] != float64(200) {
		t.Fatalf("maxOutputTokens = %v", genConfig["maxOutputTokens"])
	}

	contents, ok := gotPayload["contents"].([]any)
	if !ok || len(contents) != 1 {
		t.Fatalf("contents = %v", gotPayload["contents"])
	}
	prompt := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(prompt, "list all user ids") || !strings.Contains(prompt, "PostgreSQL") {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestGeminiTranslateErrorStatus(t *testing.T) {
	_, translator := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
	})

	_, err := translator.Translate(context.Background(), Request{NaturalLanguage: "anything"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v, want status in message", err)
	}
}

func TestGeminiTranslateNoCandidates(t *testing.T) {
	_, translator := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := translator.Translate(context.Background(), Request{NaturalLanguage: "anything"})
	if err == nil || !strings.Contains(err.Error(), "no candidates") {
		t.Fatalf("error = %v", err)
	}
}

func TestGeminiTranslateEmptyText(t *testing.T) {
	_, translator := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	})

	_, err := translator.Translate(context.Background(), Request{NaturalLanguage: "anything"})
	if err == nil || !strings.Contains(err.Error(), "empty query") {
		t.Fatalf("error = %v", err)
	}
}

func TestNewGeminiTranslatorRejectsMissingKey(t *testing.T) {
	for _, key := range []string{"", "  ", APIKeyPlaceholder} {
		if _, err := NewGeminiTranslator(GeminiConfig{APIKey: key}); err == nil {
			t.Fatalf("NewGeminiTranslator(key=%q) should fail", key)
		}
	}
}
