package domain

import (
	"errors"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

var (
	// ErrConfiguration signals a bad or missing environment setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmbeddingUnavailable signals that the embedding model or service cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrIndexUnavailable signals that the vector index cannot be opened or does not exist.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch signals a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrGenerationUnavailable signals that the language model cannot be reached.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	// ErrNotImplemented signals an environment variant that is intentionally unbuilt.
	ErrNotImplemented = errors.New("not implemented")
	// ErrInvalidRecord signals a corpus record missing required fields.
	ErrInvalidRecord = corpus.ErrInvalidRecord
	// ErrInvalidArgument signals a bad caller-supplied argument.
	ErrInvalidArgument = errors.New("invalid argument")
)
