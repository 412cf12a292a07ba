package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/config"
	dbRedis "github.com/kailas-cloud/docsage/internal/db/redis"
	"github.com/kailas-cloud/docsage/internal/domain"
	chunkrepo "github.com/kailas-cloud/docsage/internal/repository/chunk"
	"github.com/kailas-cloud/docsage/internal/repository/memory"
	"github.com/kailas-cloud/docsage/internal/repository/qdrant"
	"github.com/kailas-cloud/docsage/internal/repository/sqlite"
	"github.com/kailas-cloud/docsage/internal/transport/bedrock"
	"github.com/kailas-cloud/docsage/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/docsage/internal/transport/openai"
)

// DefaultFactories dispatch on embedding.provider, llm.provider and vector_index.backend.
func DefaultFactories() Factories {
	return Factories{
		Embedder:  NewEmbedder,
		Generator: NewGenerator,
		Backend:   NewBackend,
	}
}

// NewEmbedder builds the base embedding provider without decorators.
func NewEmbedder(_ context.Context, cfg config.Config, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		client, err := newOllamaClient(cfg)
		if err != nil {
			return nil, err
		}
		return ollama.NewEmbedder(client, cfg.Embedding.Model, logger), nil
	case config.ProviderOpenAI:
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   config.ProviderOpenAI,
			Logger:     logger,
		}), nil
	case config.ProviderBedrock:
		return bedrock.NewEmbedder(cfg.Embedding.Model), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, cfg.Embedding.Provider)
	}
}

// NewGenerator builds the generation service.
func NewGenerator(_ context.Context, cfg config.Config, logger *zap.Logger) (domain.Generator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		client, err := newOllamaClient(cfg)
		if err != nil {
			return nil, err
		}
		return ollama.NewGenerator(client, logger), nil
	case config.ProviderOpenAI:
		return openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Provider: config.ProviderOpenAI,
			Logger:   logger,
		}), nil
	case config.ProviderBedrock:
		return bedrock.NewGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfiguration, cfg.LLM.Provider)
	}
}

// NewBackend opens the configured vector index. sqlite and redis/valkey also back the embedding cache.
func NewBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	dims := cfg.Embedding.Dimensions
	collection := cfg.VectorIndex.Collection

	switch cfg.VectorIndex.Backend {
	case config.BackendSQLite:
		store := sqlite.NewStore(cfg.VectorIndex.Location)
		logger.Debug("Using sqlite vector index", zap.String("path", store.Path()))
		return Backend{
			Index: sqlite.NewIndex(store, collection, dims),
			Cache: sqlite.NewKV(store),
		}, nil

	case config.BackendRedis, config.BackendValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, cfg.VectorIndex.Backend, err)
		}
		// Wait for database to be ready
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return Backend{}, fmt.Errorf("%w: %s not ready: %w", domain.ErrIndexUnavailable, cfg.VectorIndex.Backend, err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
		return Backend{
			Index: chunkrepo.New(store, chunkrepo.Config{
				Collection:  collection,
				KeyPrefix:   cfg.Database.KeyPrefix,
				Dimensions:  dims,
				HNSWM:       cfg.Database.HNSWM,
				EFConstruct: cfg.Database.HNSWEFConstruct,
			}, store.Close),
			Cache: store,
		}, nil

	case config.BackendQdrant:
		idx, err := qdrant.Dial(cfg.Qdrant.Host, collection, dims)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Index: idx}, nil

	case config.BackendMemory:
		logger.Warn("Using in-memory vector index; chunks are lost on exit")
		return Backend{Index: memory.New(dims)}, nil

	default:
		return Backend{}, fmt.Errorf("%w: unknown vector index backend %q", domain.ErrConfiguration, cfg.VectorIndex.Backend)
	}
}

func newOllamaClient(cfg config.Config) (*api.Client, error) {
	client, err := ollama.NewClient(&ollama.Config{
		Host:    cfg.Ollama.Host,
		Timeout: time.Duration(cfg.Ollama.TimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama host %q: %w", domain.ErrConfiguration, cfg.Ollama.Host, err)
	}
	return client, nil
}
