// Package ingest turns corpus records into embedded, indexed chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/corpus"
	"github.com/kailas-cloud/docsage/internal/logger"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

// Result summarizes an ingestion run.
type Result struct {
	Records int // records that produced at least one chunk
	Skipped int
	Chunks  int
}

// Service validates records, embeds their chunks in one batch and upserts them.
type Service struct {
	embedder       domain.Embedder
	index          domain.VectorIndex
	orphanComments bool
	logger         *zap.Logger
}

// New creates an ingestion service.
func New(embedder domain.Embedder, index domain.VectorIndex, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, index: index, logger: logger}
}

// WithOrphanComments indexes the comments of records that only lack the note or design document.
func (s *Service) WithOrphanComments(enabled bool) *Service {
	s.orphanComments = enabled
	return s
}

// Run loads records from l and ingests them.
func (s *Service) Run(ctx context.Context, l Loader) (Result, error) {
	records, err := l.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load corpus: %w", err)
	}
	return s.Ingest(ctx, records)
}

// Ingest indexes records. Bad records are skipped with a warning and the batch continues.
// A valid record whose ticket id appears again later in the batch is superseded by the
// last valid occurrence. Invalid duplicates never supersede.
func (s *Service) Ingest(ctx context.Context, records []corpus.Record) (Result, error) {
	log := logger.FromContext(ctx, s.logger)

	derived := make([][]chunk.Chunk, len(records))
	valid := make([]bool, len(records))
	last := make(map[string]int, len(records))
	for i, r := range records {
		derived[i], valid[i] = s.chunksOf(log, r)
		if valid[i] {
			last[r.TicketID] = i
		}
	}

	var res Result
	var chunks []chunk.Chunk
	for i, r := range records {
		if !valid[i] {
			s.skip(&res)
			continue
		}
		if last[r.TicketID] != i {
			log.Warn("Skipping superseded record", zap.String("ticket_id", r.TicketID))
			s.skip(&res)
			continue
		}
		res.Records++
		metrics.IngestRecordsTotal.WithLabelValues("indexed").Inc()
		chunks = append(chunks, derived[i]...)
	}

	if err := s.index.Ensure(ctx); err != nil {
		return res, fmt.Errorf("ensure index: %w", err)
	}
	if len(chunks) == 0 {
		log.Warn("No chunks to index", zap.Int("skipped", res.Skipped))
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	emb, err := domain.BatchEmbed(ctx, s.embedder, texts)
	if err != nil {
		return res, fmt.Errorf("embed chunks: %w", err)
	}
	if len(emb.Embeddings) != len(chunks) {
		return res, fmt.Errorf("embed chunks: got %d vectors for %d texts: %w",
			len(emb.Embeddings), len(chunks), domain.ErrEmbeddingUnavailable)
	}
	for i := range chunks {
		chunks[i].Vector = emb.Embeddings[i]
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return res, fmt.Errorf("upsert chunks: %w", err)
	}
	res.Chunks = len(chunks)

	log.Info("Ingestion completed",
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped),
		zap.Int("chunks", res.Chunks),
		zap.Int("total_tokens", emb.TotalTokens),
	)
	return res, nil
}

func (s *Service) skip(res *Result) {
	res.Skipped++
	metrics.IngestRecordsTotal.WithLabelValues("skipped").Inc()
}

// chunksOf validates r and derives its chunks. ok is false when the record is skipped.
func (s *Service) chunksOf(log *zap.Logger, r corpus.Record) ([]chunk.Chunk, bool) {
	if err := r.Validate(); err != nil {
		if !s.indexableOrphan(r, err) {
			log.Warn("Skipping invalid record", zap.String("ticket_id", r.TicketID), zap.Error(err))
			return nil, false
		}
		log.Warn("Indexing comments of incomplete record", zap.String("ticket_id", r.TicketID), zap.Error(err))
	}

	out := chunk.FromRecord(r)
	if len(out) == 0 {
		log.Warn("Skipping record without indexable content", zap.String("ticket_id", r.TicketID))
		return nil, false
	}
	return out, true
}

func (s *Service) indexableOrphan(r corpus.Record, err error) bool {
	return s.orphanComments &&
		errors.Is(err, domain.ErrInvalidRecord) &&
		strings.TrimSpace(r.TicketID) != "" &&
		len(r.ReviewComments) > 0
}
