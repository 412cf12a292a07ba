package domain

import (
	"context"

	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
)

// VectorIndex stores chunks and answers filtered nearest-neighbour queries.
//
// Upsert is idempotent by chunk id. Query ranks by descending similarity,
// breaking ties by insertion order, and applies the filter before ranking.
type VectorIndex interface {
	Ensure(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunk.Chunk) error
	Query(ctx context.Context, vector []float32, k int, f filter.Expression) ([]chunk.Hit, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
