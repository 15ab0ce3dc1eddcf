// Package mock provides a scripted model client for tests.
package mock

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/coldfront/provider"
)

const defaultResponse = "Task acknowledged. Working on it."

// Client returns scripted responses in order, then the default. An
// entry may carry an error instead of text to simulate backend
// failures. Safe for use from concurrent workers.
type Client struct {
	mu      sync.Mutex
	script  []Turn
	idx     int
	prompts [][]provider.Message
}

// Turn is one scripted exchange.
type Turn struct {
	Text string
	Err  error
}

// New creates a client that replies with the given texts in order.
func New(responses ...string) *Client {
	turns := make([]Turn, len(responses))
	for i, r := range responses {
		turns[i] = Turn{Text: r}
	}
	return &Client{script: turns}
}

// NewScripted creates a client from explicit turns, allowing errors.
func NewScripted(turns ...Turn) *Client {
	return &Client{script: turns}
}

func (c *Client) Name() string { return "mock" }

// Generate returns the next scripted turn. Past the end of the script
// it returns the default response.
func (c *Client) Generate(_ context.Context, messages []provider.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, messages)
	if c.idx >= len(c.script) {
		return defaultResponse, nil
	}
	turn := c.script[c.idx]
	c.idx++
	if turn.Err != nil {
		return "", turn.Err
	}
	return turn.Text, nil
}

// Stream wraps Generate output into a two-chunk stream.
func (c *Client) Stream(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	text, err := c.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	ch := make(chan provider.Chunk, 2)
	ch <- provider.Chunk{Text: text}
	ch <- provider.Chunk{Done: true}
	close(ch)
	return ch, nil
}

// Prompts returns every conversation passed to Generate, for
// assertions on what workers actually sent.
func (c *Client) Prompts() [][]provider.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]provider.Message, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Calls returns how many times Generate was invoked.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}
