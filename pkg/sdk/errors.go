package docsage

import (
	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/usecase/pipeline"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration         = domain.ErrConfiguration
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrIndexUnavailable      = domain.ErrIndexUnavailable
	ErrDimensionMismatch     = domain.ErrDimensionMismatch
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
	ErrNotImplemented        = domain.ErrNotImplemented
	ErrInvalidRecord         = domain.ErrInvalidRecord
	ErrInvalidArgument       = domain.ErrInvalidArgument
)

// ErrorMarker prefixes the text GenerateDraft and ReviewNote return on failure.
const ErrorMarker = pipeline.ErrorMarker
