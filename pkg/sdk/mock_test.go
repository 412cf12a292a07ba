package docsage

import (
	"context"
	"strings"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// wordEmbedder maps text onto 3 dims by keyword, so retrieval order is predictable.
func wordEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		v := []float32{0.01, 0.01, 0.01}
		if strings.Contains(text, "login") {
			v[0] = 1
		}
		if strings.Contains(text, "export") {
			v[1] = 1
		}
		if strings.Contains(text, "benefit") {
			v[2] = 1
		}
		return EmbeddingResult{Embedding: v, TotalTokens: len(text)}, nil
	}}
}

type mockGenerator struct {
	prompt string
	model  string
	err    error
}

func (m *mockGenerator) Generate(_ context.Context, prompt, model string) (string, error) {
	m.prompt = prompt
	m.model = model
	if m.err != nil {
		return "", m.err
	}
	return "generated", nil
}
