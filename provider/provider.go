// Package provider defines the model backend interface that powers
// swarm workers.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable indicates the backend could not be reached
	// at all (connection refused, DNS failure, service down).
	ErrBackendUnavailable = errors.New("model backend unavailable")

	// ErrTimeout indicates the backend was reached but did not answer
	// within the request deadline.
	ErrTimeout = errors.New("model request timed out")
)

// Role identifies the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chunk is a piece of a streaming response. Done is set on the final
// chunk, which carries no text.
type Chunk struct {
	Text string
	Done bool
}

// Client is a model backend. Generate returns the complete response
// text for a conversation; Stream delivers it incrementally on the
// returned channel, which is closed after the Done chunk.
type Client interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
}
