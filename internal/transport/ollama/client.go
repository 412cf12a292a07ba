// Package ollama adapts a local Ollama server to the embedding and generation contracts.
package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultHost is used when OLLAMA_HOST is empty.
const DefaultHost = "http://localhost:11434"

// Config holds the Ollama connection settings.
type Config struct {
	Host    string
	Timeout time.Duration
}

// NewClient builds an api.Client for cfg.Host.
func NewClient(cfg *Config) (*api.Client, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	return api.NewClient(u, &http.Client{Timeout: cfg.Timeout}), nil
}

// classify wraps an Ollama error with kind, keeping the server message.
func classify(op string, err, kind error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return fmt.Errorf("%w: ollama %s %d: %s", kind, op, se.StatusCode, msg)
	}
	return fmt.Errorf("%w: ollama %s: %w", kind, op, err)
}
