// Package llm wraps the generation collaborator behind a one-method
// interface. The client speaks the OpenAI-compatible chat completions API,
// which also covers proxied Gemini/Anthropic endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Generator produces one completion for one prompt. No output schema is
// enforced here; the structured RESPONSE:/SUMMARY: contract lives entirely in
// prompt construction and parsing.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion means the provider answered without usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// Client is the OpenAI-compatible Generator implementation.
type Client struct {
	api   *openai.Client
	model string
	log   *zap.Logger
}

// NewClient builds a Client. baseURL may be empty for the default endpoint.
func NewClient(apiKey, baseURL, model string, log *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
		log:   log,
	}
}

// Generate sends the prompt as a single user message and returns the trimmed
// completion text. Timeouts come from ctx; a deadline error is an ordinary
// generation failure for callers.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	c.log.Debug("completion received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return out, nil
}
