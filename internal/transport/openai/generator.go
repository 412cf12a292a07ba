package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

// Generator produces text through the chat completions endpoint.
// Instructions go in the system message, the rendered body in the user message.
type Generator struct {
	client   *openai.Client
	provider string
	logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client:   newClient(cfg),
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

var _ domain.Generator = (*Generator)(nil)

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, env prompt.Envelope, modelID string) (string, error) {
	body, err := prompt.RenderBody(env)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if env.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: env.Instructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: body,
	})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: messages,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, modelID, "error").Inc()
		return "", parseAPIError("chat completion", err, domain.ErrGenerationUnavailable)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, modelID, "error").Inc()
		return "", fmt.Errorf("%w: empty chat completion response", domain.ErrGenerationUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, modelID, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, modelID).Observe(duration.Seconds())
	g.logger.Debug("Chat completion finished",
		zap.String("model", modelID),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return parseAPIError("list models", err, domain.ErrGenerationUnavailable)
	}
	return nil
}
