package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/db"
	"github.com/kailas-cloud/docsage/internal/domain"
)

// mockEmbedder returns a vector whose first element is the text length.
type mockEmbedder struct {
	err        error
	tokens     int
	texts      []string
	batchCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	m.texts = append(m.texts, text)
	return domain.EmbeddingResult{
		Embedding:    []float32{float32(len(text)), 1},
		PromptTokens: m.tokens,
		TotalTokens:  m.tokens,
	}, nil
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	return domain.BatchFallback(ctx, m, texts)
}

// mapStore is an in-memory KV store.
type mapStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mapStore) {
	t.Helper()
	ms := &mapStore{data: map[string][]byte{}}
	return New(inner, ms, "nomic-embed-text", nil, zap.NewNop()), ms
}
