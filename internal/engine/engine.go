package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind selects the backing data store for a request. The set is closed:
// every dispatch point switches exhaustively over these values.
type Kind string

const (
	KindRelational Kind = "relational"
	KindColumnar   Kind = "columnar"
)

// ErrUnsupportedEngine marks an engine kind outside the closed set. Callers
// treat it as a validation error; no connection is ever attempted for it.
var ErrUnsupportedEngine = errors.New("unsupported engine kind")

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindRelational:
		return KindRelational, nil
	case KindColumnar:
		return KindColumnar, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, raw)
	}
}

// RelationalConfig holds the connection parameters for a PostgreSQL target.
type RelationalConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (c RelationalConfig) empty() bool {
	return c.Host == "" && c.Port == 0 && c.Database == "" && c.User == "" && c.Password == ""
}

// ColumnarConfig holds the parameters for a parquet dataset in an
// S3-compatible object store, queried through DuckDB.
type ColumnarConfig struct {
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	Dataset         string `json:"dataset"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
}

func (c ColumnarConfig) empty() bool {
	return c.Endpoint == "" && c.Bucket == "" && c.Dataset == "" && c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// Descriptor names one query target. The relational and columnar sections
// are mutually exclusive: exactly the section matching Kind must be filled.
type Descriptor struct {
	Kind       Kind             `json:"kind"`
	Relational RelationalConfig `json:"relational"`
	Columnar   ColumnarConfig   `json:"columnar"`
}

func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindRelational:
		if !d.Columnar.empty() {
			return fmt.Errorf("relational descriptor must not carry columnar fields")
		}
		if d.Relational.Host == "" {
			return fmt.Errorf("relational host is required")
		}
		if d.Relational.Database == "" {
			return fmt.Errorf("relational database is required")
		}
		if d.Relational.User == "" {
			return fmt.Errorf("relational user is required")
		}
		return nil
	case KindColumnar:
		if !d.Relational.empty() {
			return fmt.Errorf("columnar descriptor must not carry relational fields")
		}
		if d.Columnar.Endpoint == "" {
			return fmt.Errorf("columnar endpoint is required")
		}
		if d.Columnar.Bucket == "" {
			return fmt.Errorf("columnar bucket is required")
		}
		if d.Columnar.Dataset == "" {
			return fmt.Errorf("columnar dataset is required")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEngine, d.Kind)
	}
}

// Record is one result row keyed by column name.
type Record = map[string]any

// Engine is the per-request access layer for one data store. Implementations
// open a fresh connection for every call and close it before returning;
// no connection state survives across calls.
type Engine interface {
	// FetchSchema renders a textual description of the target's tables and
	// columns, suitable as opaque prompt context. Failures are wrapped in
	// *SchemaError.
	FetchSchema(ctx context.Context) (string, error)

	// Validate dry-runs the query. Invalid SQL yields (false, diagnostic,
	// nil); a non-nil error means the engine itself was unreachable.
	Validate(ctx context.Context, sql string) (bool, string, error)

	// Execute runs the query and materializes every row into a Record.
	// Errors satisfying IsQueryError are client-side query faults; anything
	// else is an infrastructure failure.
	Execute(ctx context.Context, sql string) ([]Record, error)

	// Dialect is the textual dialect label used in generation prompts.
	Dialect() string
}

// SchemaError wraps any failure while fetching schema context.
type SchemaError struct {
	Kind Kind
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("fetch %s schema: %v", e.Kind, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// QueryError marks an execution failure caused by the query itself (for
// example a reference to a column that does not exist) rather than by the
// connection to the engine.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
