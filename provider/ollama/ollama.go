// Package ollama provides a model client backed by a local Ollama
// server's chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/GoCodeAlone/coldfront/provider"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
	defaultTimeout = 120 * time.Second
)

// Client talks to an Ollama server over its NDJSON chat API.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New creates an Ollama client. Empty baseURL and model fall back to
// the local defaults.
func New(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (c *Client) Name() string { return "ollama" }

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

func (c *Client) send(ctx context.Context, messages []provider.Message, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ollama: %w", provider.ErrTimeout)
		}
		return nil, fmt.Errorf("ollama: %w: %v", provider.ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("ollama: %w: status %d", provider.ErrBackendUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp, nil
}

// Generate collects the full streamed response into one string. Ollama
// streams NDJSON by default, so the non-streaming path reads the same
// wire format.
func (c *Client) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, messages, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if e := gjson.Get(line, "error"); e.Exists() {
			return "", fmt.Errorf("ollama: %s", e.String())
		}
		b.WriteString(gjson.Get(line, "message.content").String())
		if gjson.Get(line, "done").Bool() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ollama: %w", provider.ErrTimeout)
		}
		return "", fmt.Errorf("ollama: read stream: %w", err)
	}
	return b.String(), nil
}

// Stream emits each NDJSON chunk as it arrives.
func (c *Client) Stream(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	resp, err := c.send(ctx, messages, true)
	if err != nil {
		cancel()
		return nil, err
	}

	ch := make(chan provider.Chunk, 16)
	go func() {
		defer close(ch)
		defer cancel()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if text := gjson.Get(line, "message.content").String(); text != "" {
				ch <- provider.Chunk{Text: text}
			}
			if gjson.Get(line, "done").Bool() {
				ch <- provider.Chunk{Done: true}
				return
			}
		}
		ch <- provider.Chunk{Done: true}
	}()
	return ch, nil
}
