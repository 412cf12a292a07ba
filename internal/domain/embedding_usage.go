package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates the embedding tokens a single draft or review consumed.
// The HTTP handler installs it, the pipeline adds to it, the handler reports it as a header.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // set even when a cache hit reported 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector installed by NewContextWithUsage, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
