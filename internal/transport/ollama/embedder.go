package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

const provider = "ollama"

// Embedder calls /api/embed, which accepts a batch of inputs.
type Embedder struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(client *api.Client, model string, logger *zap.Logger) *Embedder {
	return &Embedder{client: client, model: model, logger: logger}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, classify("embed", err, domain.ErrEmbeddingUnavailable)
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingUnavailable, len(resp.Embeddings), len(texts))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.model).Observe(duration.Seconds())
	if resp.PromptEvalCount > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.model, "prompt").Add(float64(resp.PromptEvalCount))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   resp.Embeddings,
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// HealthCheck pings the server root.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return classify("heartbeat", err, domain.ErrEmbeddingUnavailable)
	}
	return nil
}
