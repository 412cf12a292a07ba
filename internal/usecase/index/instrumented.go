// Package index decorates vector index backends with metrics and logging.
package index

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/logger"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

// InstrumentedIndex records operation durations and errors per backend.
type InstrumentedIndex struct {
	inner   domain.VectorIndex
	backend string
	logger  *zap.Logger
}

var _ domain.VectorIndex = (*InstrumentedIndex)(nil)

// NewInstrumentedIndex wraps a backend. backend is the metric label ("sqlite", "redis", ...).
func NewInstrumentedIndex(inner domain.VectorIndex, backend string, logger *zap.Logger) *InstrumentedIndex {
	return &InstrumentedIndex{inner: inner, backend: backend, logger: logger}
}

func (x *InstrumentedIndex) observe(ctx context.Context, op string, start time.Time, err error) {
	metrics.IndexOperationDuration.WithLabelValues(x.backend, op).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	metrics.IndexErrorsTotal.WithLabelValues(x.backend, op).Inc()
	logger.FromContext(ctx, x.logger).Error("Vector index operation failed",
		zap.String("backend", x.backend),
		zap.String("op", op),
		zap.Error(err),
	)
}

// Ensure delegates to the backend.
func (x *InstrumentedIndex) Ensure(ctx context.Context) error {
	start := time.Now()
	err := x.inner.Ensure(ctx)
	x.observe(ctx, "ensure", start, err)
	return err
}

// Upsert delegates to the backend.
func (x *InstrumentedIndex) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	start := time.Now()
	err := x.inner.Upsert(ctx, chunks)
	x.observe(ctx, "upsert", start, err)
	if err == nil {
		logger.FromContext(ctx, x.logger).Debug("Chunks upserted",
			zap.String("backend", x.backend),
			zap.Int("count", len(chunks)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return err
}

// Query delegates to the backend.
func (x *InstrumentedIndex) Query(
	ctx context.Context, vector []float32, k int, f filter.Expression,
) ([]chunk.Hit, error) {
	start := time.Now()
	hits, err := x.inner.Query(ctx, vector, k, f)
	x.observe(ctx, "query", start, err)
	return hits, err
}

// Count delegates to the backend.
func (x *InstrumentedIndex) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := x.inner.Count(ctx)
	x.observe(ctx, "count", start, err)
	return n, err
}

// Ping delegates to the backend without observing.
func (x *InstrumentedIndex) Ping(ctx context.Context) error {
	return x.inner.Ping(ctx)
}

// Close delegates to the backend.
func (x *InstrumentedIndex) Close() error {
	return x.inner.Close()
}
