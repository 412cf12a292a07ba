package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// plainMockEmbedder implements only Embedder, not BatchEmbedder.
type plainMockEmbedder struct {
	result domain.EmbeddingResult
	calls  int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	p := NewInstrumentedEmbedder(inner, "ollama", "nomic-embed-text", 3, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable)}
	p := NewInstrumentedEmbedder(inner, "ollama", "m", 0, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestInstrumentedEmbedder_DimensionMismatch(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	p := NewInstrumentedEmbedder(inner, "ollama", "m", 768, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on batch, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	p := NewInstrumentedEmbedder(inner, "openai", "text-embedding-3-small", 2, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if res.TotalTokens != 30 {
		t.Errorf("expected 30 tokens, got %d", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_SplitsLargeBatches(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "ollama", "m", 1, zap.NewNop())

	texts := make([]string, DefaultMaxAPIBatchSize+10)
	res, err := p.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	if inner.batchCalls != 2 || inner.batchSizes[0] != DefaultMaxAPIBatchSize || inner.batchSizes[1] != 10 {
		t.Errorf("unexpected batch sizes %v", inner.batchSizes)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	p := NewInstrumentedEmbedder(&mockEmbedder{}, "ollama", "m", 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil for empty input")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: fmt.Errorf("api error")}
	p := NewInstrumentedEmbedder(inner, "ollama", "m", 0, zap.NewNop())

	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1},
		TotalTokens: 5,
	}}
	p := NewInstrumentedEmbedder(inner, "ollama", "m", 1, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 fallback Embed calls, got %d", inner.calls)
	}
}
