// Package duckdb implements the columnar engine. A dataset is a set of
// parquet objects laid out as <dataset>/<table>/<file>.parquet in an
// S3-compatible object store; each call stages the objects locally, exposes
// one view per table over read_parquet, and runs against an in-memory
// DuckDB instance that is discarded when the call returns.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querybridge/querybridge/internal/engine"
	"github.com/querybridge/querybridge/internal/storage"
)

type Engine struct {
	store   storage.ObjectStore
	dataset string
}

func New(store storage.ObjectStore, dataset string) *Engine {
	return &Engine{store: store, dataset: strings.Trim(dataset, "/")}
}

func (e *Engine) Dialect() string { return "DuckSQL" }

func (e *Engine) FetchSchema(ctx context.Context) (string, error) {
	db, tables, cleanup, err := e.stage(ctx)
	if err != nil {
		return "", &engine.SchemaError{Kind: engine.KindColumnar, Err: err}
	}
	defer cleanup()

	var builder strings.Builder
	for _, table := range tables {
		builder.WriteString("\nTable: " + table + "\n")
		rows, err := db.QueryContext(ctx, "DESCRIBE "+quoteIdent(table))
		if err != nil {
			return "", &engine.SchemaError{Kind: engine.KindColumnar, Err: fmt.Errorf("describe table %q: %w", table, err)}
		}
		if err := writeColumns(&builder, rows); err != nil {
			_ = rows.Close()
			return "", &engine.SchemaError{Kind: engine.KindColumnar, Err: err}
		}
		_ = rows.Close()
	}
	return builder.String(), nil
}

func (e *Engine) Validate(ctx context.Context, sqlText string) (bool, string, error) {
	db, _, cleanup, err := e.stage(ctx)
	if err != nil {
		return false, "", err
	}
	defer cleanup()

	if _, err := db.ExecContext(ctx, "EXPLAIN "+sqlText); err != nil {
		// The database is local at this point, so a failed EXPLAIN is a
		// verdict on the query, not an infrastructure fault.
		return false, err.Error(), nil
	}
	return true, "", nil
}

func (e *Engine) Execute(ctx context.Context, sqlText string) ([]engine.Record, error) {
	db, _, cleanup, err := e.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, &engine.QueryError{Err: fmt.Errorf("query execution failed: %w", err)}
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
		return nil, &engine.QueryError{Err: fmt.Errorf("iterate rows: %w", err)}
	}
	return records, nil
}

// stage downloads the dataset and opens an in-memory DuckDB with one view
// per table. The returned cleanup closes the database and removes the
// staging directory.
func (e *Engine) stage(ctx context.Context) (*sql.DB, []string, func(), error) {
	if e.store == nil {
		return nil, nil, nil, fmt.Errorf("object store is required")
	}
	if e.dataset == "" {
		return nil, nil, nil, fmt.Errorf("dataset is required")
	}

	objects, err := e.store.List(ctx, e.dataset)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list dataset %q: %w", e.dataset, err)
	}

	grouped := map[string][]storage.ObjectInfo{}
	for _, object := range objects {
		table, ok := tableForKey(e.dataset, object.Key)
		if !ok {
			continue
		}
		grouped[table] = append(grouped[table], object)
	}
	if len(grouped) == 0 {
		return nil, nil, nil, fmt.Errorf("dataset %q has no parquet objects", e.dataset)
	}

	workDir, err := os.MkdirTemp("", "querybridge-columnar-")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create staging dir: %w", err)
	}

	localPaths := map[string][]string{}
	for table, files := range grouped {
		for index, file := range files {
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table), index))
			if err := e.download(ctx, file.Key, localPath); err != nil {
				_ = os.RemoveAll(workDir)
				return nil, nil, nil, err
			}
			localPaths[table] = append(localPaths[table], localPath)
		}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, nil, nil, fmt.Errorf("open duckdb: %w", err)
	}
	cleanup := func() {
		_ = db.Close()
		_ = os.RemoveAll(workDir)
	}

	tables := make([]string, 0, len(localPaths))
	for table := range localPaths {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`,
			quoteIdent(table), quoteStringArray(localPaths[table]))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("create view for table %q: %w", table, err)
		}
	}
	return db, tables, cleanup, nil
}

func (e *Engine) download(ctx context.Context, key, localPath string) error {
	reader, err := e.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()
	if err := writeFile(localPath, reader); err != nil {
		return fmt.Errorf("write staged file %q: %w", localPath, err)
	}
	return nil
}

func writeColumns(builder *strings.Builder, rows *sql.Rows) error {
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("describe columns: %w", err)
	}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return fmt.Errorf("scan describe row: %w", err)
		}
		// DESCRIBE yields column_name, column_type, ... in that order.
		name := asString(values[0])
		columnType := ""
		if len(values) > 1 {
			columnType = asString(values[1])
		}
		builder.WriteString("  Column: " + name + " (" + columnType + ")\n")
	}
	return rows.Err()
}

// tableForKey extracts the table segment from <dataset>/<table>/<file>.parquet.
func tableForKey(dataset, key string) (string, bool) {
	if !strings.HasSuffix(strings.ToLower(key), ".parquet") {
		return "", false
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(key, dataset), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
