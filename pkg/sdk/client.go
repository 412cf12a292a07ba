package docsage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/app"
	"github.com/kailas-cloud/docsage/internal/config"
	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
	"github.com/kailas-cloud/docsage/internal/usecase/pipeline"
)

// Client is the docsage SDK entry point.
type Client struct {
	app *app.App
	obs *observer
}

// New configures the providers and opens the vector index.
// Configuration errors wrap ErrConfiguration.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	conf := cfg.cfg
	conf.Environment = config.EnvLocal
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("docsage: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.Build(ctx, conf, zap.NewNop(), factories(cfg))
	if err != nil {
		return nil, fmt.Errorf("docsage: %w", err)
	}
	return &Client{app: a, obs: obs}, nil
}

func factories(cfg *clientConfig) app.Factories {
	f := app.DefaultFactories()
	if cfg.embedder != nil {
		e := cfg.embedder
		f.Embedder = func(context.Context, config.Config, *zap.Logger) (domain.Embedder, error) {
			return &embedderAdapter{inner: e}, nil
		}
	}
	if cfg.generator != nil {
		g := cfg.generator
		f.Generator = func(context.Context, config.Config, *zap.Logger) (domain.Generator, error) {
			return &generatorAdapter{inner: g}, nil
		}
	}
	return f
}

// Close releases the vector index.
func (c *Client) Close() error {
	return c.app.Close()
}

// Ping checks vector index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.app.Index.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest indexes records. Invalid records are skipped and counted, not returned as errors.
// Re-ingesting a ticket overwrites its chunks.
func (c *Client) Ingest(ctx context.Context, records []Record) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	r, err := c.app.Ingest.Ingest(ctx, toCorpus(records))
	res = IngestResult{Records: r.Records, Skipped: r.Skipped, Chunks: r.Chunks}
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	return res, nil
}

// Draft writes a release note for a design document.
// Errors carry the failed stage and wrap a sentinel such as ErrGenerationUnavailable.
func (c *Client) Draft(ctx context.Context, designDocument string) (text string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("draft", start, err) }()

	return c.app.Pipeline.Draft(ctx, designDocument)
}

// Review critiques an edited release note against past review comments.
func (c *Client) Review(ctx context.Context, releaseNote string) (text string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("review", start, err) }()

	return c.app.Pipeline.Review(ctx, releaseNote)
}

// GenerateDraft is Draft returning a line starting with ErrorMarker on failure.
func (c *Client) GenerateDraft(ctx context.Context, designDocument string) string {
	text, err := c.Draft(ctx, designDocument)
	if err != nil {
		return pipeline.Marked(err)
	}
	return text
}

// ReviewNote is Review returning a line starting with ErrorMarker on failure.
func (c *Client) ReviewNote(ctx context.Context, releaseNote string) string {
	text, err := c.Review(ctx, releaseNote)
	if err != nil {
		return pipeline.Marked(err)
	}
	return text
}

// Health checks the vector index and the providers that support a probe.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.app.Health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter renders the prompt envelope for a public Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, env prompt.Envelope, modelID string) (string, error) {
	text, err := prompt.Render(env)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	out, err := a.inner.Generate(ctx, text, modelID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
	return out, nil
}
