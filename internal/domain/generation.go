package domain

import (
	"context"

	"github.com/kailas-cloud/docsage/internal/domain/prompt"
)

// Generator turns an assembled prompt into text using the given model.
type Generator interface {
	Generate(ctx context.Context, env prompt.Envelope, modelID string) (string, error)
}
