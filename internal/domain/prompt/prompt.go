// Package prompt assembles the versioned context envelope passed to a language model.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Version of the envelope format.
const Version = "1.0"

// MIME tags used in envelopes.
const (
	TypeMarkdown = "text/markdown"
	TypeJSON     = "application/json"
)

// ClosingLine ends every rendered prompt.
const ClosingLine = "Please generate the release note based on the above information."

// Input is the caller-supplied document.
type Input struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Item is one retrieved context entry.
type Item struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// Envelope bundles instructions, user input and retrieved context.
type Envelope struct {
	Version          string `json:"version"`
	Instructions     string `json:"instructions"`
	UserInput        Input  `json:"user_input"`
	RetrievedContext []Item `json:"retrieved_context"`
}

// Build creates an envelope. Retrieved records keep their order.
func Build(instructions, userInput, userInputType string, retrieved []any) Envelope {
	items := make([]Item, len(retrieved))
	for i, r := range retrieved {
		items[i] = Item{Type: TypeJSON, Content: r}
	}
	return Envelope{
		Version:      Version,
		Instructions: instructions,
		UserInput: Input{
			Type:    userInputType,
			Content: userInput,
		},
		RetrievedContext: items,
	}
}

// Render flattens the envelope into a single text block:
// instructions, user input, then each context item numbered from 1 as indented JSON.
func Render(e Envelope) (string, error) {
	body, err := RenderBody(e)
	if err != nil {
		return "", err
	}
	return "Instructions: " + e.Instructions + "\n\n" + body, nil
}

// RenderBody renders everything except the instructions.
// Chat backends with a system role send the instructions separately.
func RenderBody(e Envelope) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "User Input: %s\n\n", e.UserInput.Content)
	for i, item := range e.RetrievedContext {
		raw, err := marshalIndent(item.Content)
		if err != nil {
			return "", fmt.Errorf("render context %d: %w", i+1, err)
		}
		fmt.Fprintf(&b, "Retrieved Context %d:\n%s\n\n", i+1, raw)
	}
	b.WriteString(ClosingLine)
	return b.String(), nil
}

// marshalIndent keeps non-ASCII text and HTML characters unescaped.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
