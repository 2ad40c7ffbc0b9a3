// Package llm provides wrapper interfaces and implementations for LLM interactions.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when the backend answers without any text content.
var ErrEmptyCompletion = fmt.Errorf("llm: model returned no text")

// Completer produces a free-text completion for a prompt. It is the single
// external, non-deterministic dependency of the conversation pipeline;
// callers decide retry behavior.
type Completer interface {
	// Complete generates a text completion for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client wraps the Google GenAI client and provides text completion.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a new LLM client with the given API key and model name.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Complete generates a text completion for the given prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}

// Ensure Client implements Completer
var _ Completer = (*Client)(nil)
