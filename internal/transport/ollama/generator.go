package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

// Generator sends the flattened prompt as a single user message to /api/chat.
type Generator struct {
	client *api.Client
	logger *zap.Logger
}

// NewGenerator creates an Ollama chat generator.
func NewGenerator(client *api.Client, logger *zap.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

var _ domain.Generator = (*Generator)(nil)

// Generate implements domain.Generator. Streaming is disabled; the callback still
// runs once per chunk, so the content is accumulated.
func (g *Generator) Generate(ctx context.Context, env prompt.Envelope, modelID string) (string, error) {
	text, err := prompt.Render(env)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    modelID,
		Messages: []api.Message{{Role: "user", Content: text}},
		Stream:   &stream,
	}

	var (
		out  strings.Builder
		last api.ChatResponse
	)
	start := time.Now()
	err = g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, modelID, "error").Inc()
		return "", classify("chat", err, domain.ErrGenerationUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, modelID, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(provider, modelID).Observe(duration.Seconds())
	g.logger.Debug("Ollama chat finished",
		zap.String("model", modelID),
		zap.Duration("duration", duration),
		zap.Int("prompt_eval_count", last.PromptEvalCount),
		zap.Int("eval_count", last.EvalCount),
	)
	return out.String(), nil
}

// HealthCheck pings the server root.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if err := g.client.Heartbeat(ctx); err != nil {
		return classify("heartbeat", err, domain.ErrGenerationUnavailable)
	}
	return nil
}
