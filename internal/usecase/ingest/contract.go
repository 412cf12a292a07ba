package ingest

import (
	"context"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

// Loader produces corpus records from a source (file, source control).
type Loader interface {
	Load(ctx context.Context) ([]corpus.Record, error)
}
