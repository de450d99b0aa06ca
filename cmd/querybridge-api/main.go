package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querybridge/querybridge/internal/analyze"
	"github.com/querybridge/querybridge/internal/api"
	"github.com/querybridge/querybridge/internal/assist"
	"github.com/querybridge/querybridge/internal/auth"
	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/engine/dial"
	"github.com/querybridge/querybridge/internal/nl2sql"
	"github.com/querybridge/querybridge/internal/observability"
	"github.com/querybridge/querybridge/internal/scrape"
	"github.com/querybridge/querybridge/internal/search"
)

func main() {
	cfg, err := config.LoadFromEnv("querybridge-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	greeter, err := assist.NewGreeter(cfg.Assist.TimeZone)
	if err != nil {
		logger.Error("failed to initialize greeter", slog.Any("error", err))
		os.Exit(1)
	}

	var translator nl2sql.Translator
	switch cfg.AI.Provider {
	case "openai":
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		translator, err = nl2sql.NewGeminiTranslator(nl2sql.GeminiConfig{
			BaseURL:         cfg.AI.BaseURL,
			APIKey:          cfg.AI.APIKey,
			Model:           cfg.AI.Model,
			Temperature:     cfg.AI.Temperature,
			MaxOutputTokens: cfg.AI.MaxOutputTokens,
			Timeout:         cfg.AI.Timeout,
		})
	}
	if err != nil {
		logger.Warn("query translation disabled", slog.Any("error", err))
		translator = nil
	}

	var analyzer api.Analyzer
	model, err := analyze.NewGenAIModel(context.Background(), cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		logger.Warn("text analysis disabled", slog.Any("error", err))
	} else {
		analyzer = analyze.NewManager(model, logger)
	}

	deps := api.Dependencies{
		Logger:   logger,
		Greeter:  greeter,
		Analyzer: analyzer,
		Searcher: search.NewClient(cfg.Search.BaseURL, cfg.Search.Timeout, logger),
		Scraper: scrape.NewClient(
			scrape.NewFetcher(cfg.Scrape.ProxyBaseURL, cfg.Scrape.APIKey, cfg.Scrape.Timeout),
			logger,
		),
		Pipeline:          &nl2sql.Pipeline{Translator: translator, Logger: logger},
		Engines:           dial.New,
		DefaultDescriptor: cfg.DefaultDescriptor,
		DefaultKind:       cfg.DefaultEngineKind(),
		Readiness: api.CombineReadinessChecks(
			api.CheckRelationalConfig(cfg),
			api.CheckWarehouseConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
