package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/logger"
)

// DefaultMaxAPIBatchSize caps the texts sent in one embeddings API request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps an Embedder with batching, dimension checks and logging.
// Transport metrics (requests, duration, tokens) are recorded by the provider adapters.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. dimensions <= 0 skips the vector length check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, dimensions int, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:      inner,
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Embed delegates to the inner embedder and validates the vector length.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx, p.logger)
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)
	if err != nil {
		log.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	if err := domain.CheckDimension(result.Embedding, p.dimensions); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed with %s: %w", p.model, err)
	}

	log.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed splits texts into sub-batches of DefaultMaxAPIBatchSize and delegates each.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	log := logger.FromContext(ctx, p.logger)
	start := time.Now()

	result, err := p.embedChunked(ctx, log, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	log.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, log *zap.Logger, texts []string,
) (domain.BatchEmbeddingResult, error) {
	all := make([][]float32, 0, len(texts))
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := min(offset+DefaultMaxAPIBatchSize, len(texts))
		part := texts[offset:end]

		res, err := domain.BatchEmbed(ctx, p.inner, part)
		if err != nil {
			log.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(part)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(part) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
				domain.ErrEmbeddingUnavailable, len(res.Embeddings), len(part))
		}
		for i, vec := range res.Embeddings {
			if err := domain.CheckDimension(vec, p.dimensions); err != nil {
				return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed [%d]: %w", offset+i, err)
			}
		}

		all = append(all, res.Embeddings...)
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   all,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
