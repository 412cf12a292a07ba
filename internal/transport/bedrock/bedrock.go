// Package bedrock reserves the managed-cloud provider slot. Every call fails with
// domain.ErrNotImplemented until a Bedrock client is wired in.
package bedrock

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
)

// Embedder is the Bedrock embedding placeholder.
type Embedder struct {
	model string
}

// NewEmbedder creates the placeholder for model.
func NewEmbedder(model string) *Embedder {
	return &Embedder{model: model}
}

// Embed always returns domain.ErrNotImplemented.
func (e *Embedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("bedrock embedding %s: %w", e.model, domain.ErrNotImplemented)
}

// HealthCheck always returns domain.ErrNotImplemented.
func (e *Embedder) HealthCheck(context.Context) error {
	return fmt.Errorf("bedrock health check: %w", domain.ErrNotImplemented)
}

// Generator is the Bedrock generation placeholder.
type Generator struct{}

// NewGenerator creates the placeholder.
func NewGenerator() *Generator {
	return &Generator{}
}

var _ domain.Generator = (*Generator)(nil)

// Generate always returns domain.ErrNotImplemented.
func (g *Generator) Generate(_ context.Context, _ prompt.Envelope, modelID string) (string, error) {
	return "", fmt.Errorf("bedrock generation %s: %w", modelID, domain.ErrNotImplemented)
}

// HealthCheck always returns domain.ErrNotImplemented.
func (g *Generator) HealthCheck(context.Context) error {
	return fmt.Errorf("bedrock health check: %w", domain.ErrNotImplemented)
}
