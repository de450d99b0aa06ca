// Package dial constructs the engine matching a connection descriptor.
package dial

import (
	"context"
	"fmt"

	"github.com/querybridge/querybridge/internal/engine"
	"github.com/querybridge/querybridge/internal/engine/duckdb"
	"github.com/querybridge/querybridge/internal/engine/postgres"
	"github.com/querybridge/querybridge/internal/storage/s3"
)

// New validates the descriptor and returns the engine for its kind. The
// returned engine opens its own connections per call; construction itself
// performs no I/O.
func New(ctx context.Context, desc engine.Descriptor) (engine.Engine, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	switch desc.Kind {
	case engine.KindRelational:
		return postgres.New(desc.Relational), nil
	case engine.KindColumnar:
		store, err := s3.New(ctx, s3.Config{
			Endpoint:        desc.Columnar.Endpoint,
			Bucket:          desc.Columnar.Bucket,
			AccessKeyID:     desc.Columnar.AccessKeyID,
			SecretAccessKey: desc.Columnar.SecretAccessKey,
			UseSSL:          desc.Columnar.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("configure object store: %w", err)
		}
		return duckdb.New(store, desc.Columnar.Dataset), nil
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnsupportedEngine, desc.Kind)
	}
}
