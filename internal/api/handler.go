package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querybridge/querybridge/internal/analyze"
	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/engine"
	"github.com/querybridge/querybridge/internal/observability"
	"github.com/querybridge/querybridge/internal/scrape"
	"github.com/querybridge/querybridge/internal/search"
)

type ReadinessCheck func(ctx context.Context) error

type Greeter interface {
	Greet(hour *int) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) (analyze.Analysis, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]search.Result, error)
}

type Scraper interface {
	Amazon(ctx context.Context, itemName string) ([]scrape.Product, error)
	Walmart(ctx context.Context, itemName string) ([]scrape.Product, error)
	Target(ctx context.Context, itemName string) ([]scrape.Product, error)
}

type QueryPipeline interface {
	GenerateQuery(ctx context.Context, eng engine.Engine, natural, schemaContext string) (string, error)
	FetchData(ctx context.Context, eng engine.Engine, natural, schemaContext string) (string, []engine.Record, error)
}

// EngineFactory turns a validated descriptor into a live engine.
type EngineFactory func(ctx context.Context, desc engine.Descriptor) (engine.Engine, error)

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Greeter           Greeter
	Analyzer          Analyzer
	Searcher          Searcher
	Scraper           Scraper
	Pipeline          QueryPipeline
	Engines           EngineFactory

	// DefaultDescriptor supplies the fallback target for requests that omit
	// db_config.
	DefaultDescriptor func(kind engine.Kind) (engine.Descriptor, error)
	DefaultKind       engine.Kind
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/greet", func(w http.ResponseWriter, r *http.Request) {
		handleGreet(deps, w, r)
	})
	protected.HandleFunc("POST /v1/process", func(w http.ResponseWriter, r *http.Request) {
		handleProcess(deps, w, r)
	})
	protected.HandleFunc("POST /v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyze(deps, w, r)
	})
	protected.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		handleSearch(deps, w, r)
	})
	protected.HandleFunc("POST /v1/scrape_amazon", func(w http.ResponseWriter, r *http.Request) {
		handleScrape(deps, w, r, "Amazon")
	})
	protected.HandleFunc("POST /v1/scrape_walmart", func(w http.ResponseWriter, r *http.Request) {
		handleScrape(deps, w, r, "Walmart")
	})
	protected.HandleFunc("POST /v1/scrape_target", func(w http.ResponseWriter, r *http.Request) {
		handleScrape(deps, w, r, "Target")
	})
	protected.HandleFunc("POST /v1/generate_query", func(w http.ResponseWriter, r *http.Request) {
		handleGenerateQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/fetch_data", func(w http.ResponseWriter, r *http.Request) {
		handleFetchData(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/greet", protectedHandler)
	mux.Handle("POST /v1/process", protectedHandler)
	mux.Handle("POST /v1/analyze", protectedHandler)
	mux.Handle("POST /v1/search", protectedHandler)
	mux.Handle("POST /v1/scrape_amazon", protectedHandler)
	mux.Handle("POST /v1/scrape_walmart", protectedHandler)
	mux.Handle("POST /v1/scrape_target", protectedHandler)
	mux.Handle("POST /v1/generate_query", protectedHandler)
	mux.Handle("POST /v1/fetch_data", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckRelationalConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Relational.Host == "" {
			return errors.New("relational host is not configured")
		}
		if cfg.Relational.Database == "" {
			return errors.New("relational database is not configured")
		}
		return nil
	}
}

func CheckWarehouseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Columnar.Endpoint == "" {
			return errors.New("warehouse endpoint is not configured")
		}
		if cfg.Columnar.Bucket == "" {
			return errors.New("warehouse bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
