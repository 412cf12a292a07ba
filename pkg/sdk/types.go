package docsage

import (
	"context"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

// Record is one past ticket: its final release note, design document and review comments.
type Record struct {
	TicketID       string
	ReleaseNote    string
	DesignDocument string
	ReviewComments []ReviewComment
}

// ReviewComment is a reviewer remark, optionally anchored to a file line.
type ReviewComment struct {
	Text        string
	ContextLine string
}

// IngestResult summarizes an Ingest call.
type IngestResult struct {
	Records int // records that produced at least one chunk
	Skipped int
	Chunks  int
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator completes a rendered prompt with the given model.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

func toCorpus(records []Record) []corpus.Record {
	out := make([]corpus.Record, len(records))
	for i, r := range records {
		comments := make([]corpus.ReviewComment, len(r.ReviewComments))
		for j, c := range r.ReviewComments {
			comments[j] = corpus.ReviewComment{CommentText: c.Text, ContextLine: c.ContextLine}
		}
		out[i] = corpus.Record{
			TicketID:         r.TicketID,
			FinalReleaseNote: r.ReleaseNote,
			DesignDocument:   r.DesignDocument,
			ReviewComments:   comments,
		}
	}
	return out
}
