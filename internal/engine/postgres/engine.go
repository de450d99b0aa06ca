// Package postgres implements the relational engine on top of the pgx
// database/sql driver. Every call opens a fresh connection and closes it
// before returning; the pipeline holds no pooled state across requests.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querybridge/querybridge/internal/engine"
)

const schemaQuery = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

type Engine struct {
	cfg engine.RelationalConfig

	// openDB is swapped in tests to point connections at sqlmock.
	openDB func(dsn string) (*sql.DB, error)
}

func New(cfg engine.RelationalConfig) *Engine {
	return &Engine{
		cfg: cfg,
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
}

func (e *Engine) Dialect() string { return "PostgreSQL" }

func (e *Engine) FetchSchema(ctx context.Context) (string, error) {
	db, err := e.connect(ctx)
	if err != nil {
		return "", &engine.SchemaError{Kind: engine.KindRelational, Err: err}
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, schemaQuery)
	if err != nil {
		return "", &engine.SchemaError{Kind: engine.KindRelational, Err: fmt.Errorf("query information_schema: %w", err)}
	}
	defer func() { _ = rows.Close() }()

	var builder strings.Builder
	currentTable := ""
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return "", &engine.SchemaError{Kind: engine.KindRelational, Err: fmt.Errorf("scan schema row: %w", err)}
		}
		if table != currentTable {
			builder.WriteString("\nTable: " + table + "\n")
			currentTable = table
		}
		builder.WriteString("  Column: " + column + " (" + dataType + ")\n")
	}
	if err := rows.Err(); err != nil {
		return "", &engine.SchemaError{Kind: engine.KindRelational, Err: fmt.Errorf("iterate schema rows: %w", err)}
	}
	return builder.String(), nil
}

func (e *Engine) Validate(ctx context.Context, sqlText string) (bool, string, error) {
	db, err := e.connect(ctx)
	if err != nil {
		return false, "", err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "EXPLAIN "+sqlText); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return false, pgErr.Message, nil
		}
		return false, "", fmt.Errorf("explain query: %w", err)
	}
	return true, "", nil
}

func (e *Engine) Execute(ctx context.Context, sqlText string) ([]engine.Record, error) {
	db, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	records := make([]engine.Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(engine.Record, len(columns))
		for i, column := range columns {
			record[column] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (e *Engine) connect(ctx context.Context) (*sql.DB, error) {
	db, err := e.openDB(e.dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (e *Engine) dsn() string {
	port := e.cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		e.cfg.User, e.cfg.Password, e.cfg.Host, port, e.cfg.Database)
}

// classify maps a pgx server error to a query fault and leaves everything
// else (dial failures, auth failures) as infrastructure errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &engine.QueryError{Err: fmt.Errorf("query execution failed: %s", pgErr.Message)}
	}
	return fmt.Errorf("execute query: %w", err)
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}
