// Package openai adapts OpenAI-compatible endpoints (OpenAI, Nebius, vLLM, LM Studio)
// to the embedding and generation contracts.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the provider settings shared by the embedder and the generator.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError extracts a human-readable error from the API response and wraps it with kind.
func parseAPIError(op string, err, kind error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("%w: %s API error %d: %s", kind, op, reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("%w: %s API error %d: %s", kind, op, reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s API error %d: %s", kind, op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: %s request failed: %w", kind, op, err)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
