package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/observability"
	"github.com/querybridge/querybridge/internal/seed"
	s3store "github.com/querybridge/querybridge/internal/storage/s3"
)

func main() {
	warehouse := flag.Bool("warehouse", true, "seed the parquet dataset in the object store")
	relational := flag.Bool("relational", false, "seed the PostgreSQL demo tables")
	flag.Parse()

	cfg, err := config.LoadFromEnv("querybridge-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *warehouse {
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Columnar.Endpoint,
			Region:           cfg.Columnar.Region,
			Bucket:           cfg.Columnar.Bucket,
			AccessKeyID:      cfg.Columnar.AccessKeyID,
			SecretAccessKey:  cfg.Columnar.SecretAccessKey,
			UseSSL:           cfg.Columnar.UseSSL,
			AutoCreateBucket: true,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}

		seeder := &seed.Seeder{Store: store, Dataset: cfg.Columnar.Dataset, Logger: logger}
		if err := seeder.SeedWarehouse(ctx); err != nil {
			logger.Error("failed to seed warehouse", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("warehouse dataset seeded",
			slog.String("bucket", cfg.Columnar.Bucket),
			slog.String("dataset", cfg.Columnar.Dataset),
		)
	}

	if *relational {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.Relational.User, cfg.Relational.Password,
			cfg.Relational.Host, cfg.Relational.Port, cfg.Relational.Database)
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := seed.SeedRelational(ctx, db); err != nil {
			logger.Error("failed to seed database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("relational tables seeded",
			slog.String("database", cfg.Relational.Database),
		)
	}
}
