package docsage

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/docsage/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg config.Config

	embedder  Embedder
	generator Generator

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSQLite stores the vector index in a SQLite file under dir (default backend).
func WithSQLite(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Backend = config.BackendSQLite
		c.cfg.VectorIndex.Location = dir
	})
}

// WithRedis stores the vector index in Redis with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Backend = config.BackendRedis
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithValkey stores the vector index in Valkey with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Backend = config.BackendValkey
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithQdrant stores the vector index in Qdrant. host is the gRPC host:port.
func WithQdrant(host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Backend = config.BackendQdrant
		c.cfg.Qdrant.Host = host
	})
}

// WithMemory keeps the vector index in process memory. Chunks are lost on Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Backend = config.BackendMemory
	})
}

// WithCollection sets the collection (index) name. Default: "documents".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.VectorIndex.Collection = name
	})
}

// WithHNSW configures Redis/Valkey HNSW parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.HNSWM = m
		c.cfg.Database.HNSWEFConstruct = efConstruct
	})
}

// WithOllama uses a local Ollama server for embeddings and generation.
func WithOllama(host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = config.ProviderOllama
		c.cfg.LLM.Provider = config.ProviderOllama
		c.cfg.Ollama.Host = host
	})
}

// WithOpenAI uses an OpenAI-compatible API for embeddings and generation.
// An empty baseURL selects api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = config.ProviderOpenAI
		c.cfg.LLM.Provider = config.ProviderOpenAI
		c.cfg.OpenAI.APIKey = apiKey
		c.cfg.OpenAI.BaseURL = baseURL
	})
}

// WithEmbeddingModel sets the embedding model and its vector dimension. Required.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Model = model
		c.cfg.Embedding.Dimensions = dimensions
	})
}

// WithLLMModel sets the generation model. Required.
func WithLLMModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.Model = model
	})
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator replaces the configured generation provider.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithRetrieval sets how many past chunks feed a draft and a review.
// Defaults: draft 2, review 5.
func WithRetrieval(draftK, reviewK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Pipeline.DraftK = draftK
		c.cfg.Pipeline.ReviewK = reviewK
	})
}

// WithExcludedTickets keeps the given tickets out of draft and review retrieval.
func WithExcludedTickets(ids ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Pipeline.ExcludeTickets = append(c.cfg.Pipeline.ExcludeTickets, ids...)
	})
}

// WithInstructions overrides the draft and review instruction templates.
// An empty string keeps the built-in template.
func WithInstructions(draft, review string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Prompt.DraftInstructions = draft
		c.cfg.Prompt.ReviewInstructions = review
	})
}

// WithOrphanComments also indexes the comments of records that lack a note or design document.
func WithOrphanComments() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Ingest.IndexOrphanComments = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
