// Package memory is an in-process vector index used by tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/repository/rank"
)

type entry struct {
	chunk chunk.Chunk
	seq   int64
}

// Index keeps chunks in a map guarded by an RWMutex and ranks them by brute force.
type Index struct {
	dims int

	mu     sync.RWMutex
	chunks map[string]entry
	seq    int64
}

// New creates an empty index. dims <= 0 disables dimension checks.
func New(dims int) *Index {
	return &Index{dims: dims, chunks: make(map[string]entry)}
}

var _ domain.VectorIndex = (*Index)(nil)

// Ensure is a no-op.
func (x *Index) Ensure(context.Context) error { return nil }

// Upsert stores copies of chunks; re-inserted ids take a new seq.
func (x *Index) Upsert(_ context.Context, chunks []chunk.Chunk) error {
	for _, c := range chunks {
		if err := domain.CheckDimension(c.Vector, x.dims); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range chunks {
		x.seq++
		c.Vector = slices.Clone(c.Vector)
		x.chunks[c.ID] = entry{chunk: c, seq: x.seq}
	}
	return nil
}

// Query ranks matching chunks by cosine similarity.
func (x *Index) Query(_ context.Context, vector []float32, k int, f filter.Expression) ([]chunk.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if err := domain.CheckDimension(vector, x.dims); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	entries := make([]rank.Entry, 0, len(x.chunks))
	for _, e := range x.chunks {
		if !f.Matches(e.chunk.Tags()) {
			continue
		}
		if len(e.chunk.Vector) != len(vector) {
			return nil, fmt.Errorf("chunk %s: %w: stored %d, query %d",
				e.chunk.ID, domain.ErrDimensionMismatch, len(e.chunk.Vector), len(vector))
		}
		c := e.chunk
		c.Vector = nil
		entries = append(entries, rank.Entry{
			Hit: chunk.Hit{Chunk: c, Score: rank.Cosine(vector, e.chunk.Vector)},
			Seq: e.seq,
		})
	}
	// map iteration is random; rank.Top sorts by score then seq
	return rank.Top(entries, k), nil
}

// Count returns the number of stored chunks.
func (x *Index) Count(context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks), nil
}

// Ping always succeeds.
func (x *Index) Ping(context.Context) error { return nil }

// Close is a no-op.
func (x *Index) Close() error { return nil }
