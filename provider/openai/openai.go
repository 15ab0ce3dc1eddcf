// Package openai provides a model client backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/GoCodeAlone/coldfront/provider"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
)

// Client wraps the official OpenAI SDK.
type Client struct {
	api     oai.Client
	model   string
	timeout time.Duration
}

// New creates an OpenAI client. Empty model falls back to the default;
// baseURL is optional and supports OpenAI-compatible endpoints.
func New(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		api:     oai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) params(messages []provider.Message) oai.ChatCompletionNewParams {
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case provider.RoleSystem:
			msgs = append(msgs, oai.SystemMessage(m.Content))
		case provider.RoleAssistant:
			msgs = append(msgs, oai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, oai.UserMessage(m.Content))
		}
	}
	return oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(c.model),
		Messages: msgs,
	}
}

func (c *Client) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai: %w", provider.ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("openai: %w", provider.ErrTimeout)
		}
		return fmt.Errorf("openai: %w: %v", provider.ErrBackendUnavailable, err)
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return fmt.Errorf("openai: %w: status %d", provider.ErrBackendUnavailable, apiErr.StatusCode)
	}
	return fmt.Errorf("openai: %w", err)
}

// Generate sends a non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion and forwards text deltas.
func (c *Client) Stream(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(messages))

	ch := make(chan provider.Chunk, 16)
	go func() {
		defer close(ch)
		defer cancel()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				ch <- provider.Chunk{Text: chunk.Choices[0].Delta.Content}
			}
		}
		ch <- provider.Chunk{Done: true}
	}()
	return ch, nil
}
