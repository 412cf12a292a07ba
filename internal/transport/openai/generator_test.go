package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestGenerator_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "## Feature\nAdds X."}}},
			"usage":   map[string]any{"prompt_tokens": 100, "completion_tokens": 5, "total_tokens": 105},
		})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Provider: "openai", Logger: zap.NewNop()})
	env := prompt.Build("Write a release note.", "# Design", prompt.TypeMarkdown,
		[]any{map[string]string{"retrieved_release_note": "old note"}})

	out, err := gen.Generate(context.Background(), env, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "## Feature\nAdds X." {
		t.Errorf("unexpected output %q", out)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.Messages[0].Content != "Write a release note." {
		t.Errorf("system message = %q", got.Messages[0].Content)
	}
	user := got.Messages[1].Content
	if !strings.HasPrefix(user, "User Input: # Design") || !strings.HasSuffix(user, prompt.ClosingLine) {
		t.Errorf("unexpected user message %q", user)
	}
	if !strings.Contains(user, "Retrieved Context 1:") {
		t.Errorf("context missing from user message %q", user)
	}
}

func TestGenerator_NoInstructionsSkipsSystem(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Provider: "openai", Logger: zap.NewNop()})
	if _, err := gen.Generate(context.Background(), prompt.Build("", "x", prompt.TypeMarkdown, nil), "m"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", got.Messages)
	}
}

func TestGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		}},
		{"no choices", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Provider: "openai", Logger: zap.NewNop()})
			_, err := gen.Generate(context.Background(), prompt.Build("i", "x", prompt.TypeMarkdown, nil), "m")
			if !errors.Is(err, domain.ErrGenerationUnavailable) {
				t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
			}
		})
	}
}
