package services

import (
	"context"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// Chat issues one non-streamed completion.
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// ChatStream issues a streamed completion. The channel is closed after
	// a chunk with Done set or Error set.
	ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error)
}

// StreamChunk is one decoded delta of a streamed completion.
type StreamChunk struct {
	Content   string
	Reasoning string
	Done      bool
	Error     error
}
