// Package app is the composition root: it turns a config.Config into wired services.
// Providers and backends are built through injectable factories.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/config"
	"github.com/kailas-cloud/docsage/internal/domain"
	logpkg "github.com/kailas-cloud/docsage/internal/logger"
	"github.com/kailas-cloud/docsage/internal/metrics"
	"github.com/kailas-cloud/docsage/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/docsage/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docsage/internal/usecase/health"
	indexuc "github.com/kailas-cloud/docsage/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/docsage/internal/usecase/ingest"
	"github.com/kailas-cloud/docsage/internal/usecase/pipeline"
)

// CacheStore persists cached embeddings.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Backend is a vector index plus the optional embedding cache living next to it.
type Backend struct {
	Index domain.VectorIndex
	Cache CacheStore // nil disables the embedding cache
}

// Factories build the environment-specific components.
type Factories struct {
	Embedder  func(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Embedder, error)
	Generator func(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Generator, error)
	Backend   func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error)
}

// Options tune New. Zero values select the defaults.
type Options struct {
	ConfigPath string // explicit config file instead of config/<env>.yaml
	Logger     *zap.Logger
	Factories  *Factories
}

// App holds the wired services.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Index     domain.VectorIndex
	Pipeline  *pipeline.Service
	Ingest    *ingestuc.Service
	Health    *healthuc.Service
	ownLogger bool
}

// New validates env, loads the config and builds every component once.
// An invalid env fails with domain.ErrConfiguration before any file or network I/O.
func New(ctx context.Context, env string, opts Options) (*App, error) {
	env, err := config.ParseEnvironment(env)
	if err != nil {
		return nil, err
	}

	var cfg config.Config
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath, env)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := opts.Logger
	ownLogger := false
	if logger == nil {
		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: create logger: %w", domain.ErrConfiguration, err)
		}
		ownLogger = true
	}

	f := DefaultFactories()
	if opts.Factories != nil {
		f = *opts.Factories
	}

	a, err := Build(ctx, cfg, logger, f)
	if err != nil {
		return nil, err
	}
	a.ownLogger = ownLogger
	return a, nil
}

// Build wires services from an already loaded config.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, f Factories) (*App, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRAGMetrics()
	metrics.RegisterHTTPMetrics()

	logger.Info("Building components",
		zap.String("env", cfg.Environment),
		zap.String("vector_backend", cfg.VectorIndex.Backend),
		zap.String("collection", cfg.VectorIndex.Collection),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	backend, err := f.Backend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	index := indexuc.NewInstrumentedIndex(backend.Index, cfg.VectorIndex.Backend, logger)

	base, err := f.Embedder(ctx, cfg, logger)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	generator, err := f.Generator(ctx, cfg, logger)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("build generator: %w", err)
	}

	docEmbedder := buildEmbedder(base, backend.Cache, cfg, cfg.Embedding.DocumentInstruction, logger)
	queryEmbedder := buildEmbedder(base, backend.Cache, cfg, cfg.Embedding.QueryInstruction, logger)

	exclude, err := pipeline.ExcludeTickets(cfg.Pipeline.ExcludeTickets)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	t := cfg.Pipeline.Timeouts
	pipe := pipeline.New(queryEmbedder, index, generator, pipeline.Config{
		ModelID:            cfg.LLM.Model,
		DraftK:             cfg.Pipeline.DraftK,
		ReviewK:            cfg.Pipeline.ReviewK,
		DraftInstructions:  cfg.Prompt.DraftInstructions,
		ReviewInstructions: cfg.Prompt.ReviewInstructions,
		Timeouts: pipeline.Timeouts{
			Embed:    time.Duration(t.EmbedSec) * time.Second,
			Query:    time.Duration(t.QuerySec) * time.Second,
			Generate: time.Duration(t.GenerateSec) * time.Second,
		},
		Exclude: exclude,
	}, logger)

	ingest := ingestuc.New(docEmbedder, index, logger).
		WithOrphanComments(cfg.Ingest.IndexOrphanComments)

	// Pass nil interfaces (not typed nil pointers) for providers without a health probe.
	var embCheck, genCheck healthuc.ProviderChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		embCheck = hc
	}
	if hc, ok := generator.(domain.HealthChecker); ok {
		genCheck = hc
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Index:    index,
		Pipeline: pipe,
		Ingest:   ingest,
		Health:   healthuc.New(index, embCheck, genCheck, logger),
	}, nil
}

// Close releases the index and flushes the logger New created.
func (a *App) Close() error {
	err := a.Index.Close()
	if a.ownLogger {
		_ = a.Logger.Sync()
	}
	return err
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder, cache CacheStore, cfg config.Config, instruction string, logger *zap.Logger,
) domain.Embedder {
	embedder := base

	if cache != nil && cfg.Embedding.Cache {
		embedder = embcache.New(embedder, cache, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
