package services

import (
	"context"
	"strings"
	"sync"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	ChatFunc       func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
	ChatStreamFunc func(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error)

	// Track calls for testing
	ChatCalls   []MockCall
	StreamCalls []MockCall

	mu sync.Mutex // protects all fields above
}

type MockCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLMService creates a new mock LLM service
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		ChatCalls:   make([]MockCall, 0),
		StreamCalls: make([]MockCall, 0),
	}
}

// Chat mocks a non-streamed completion
func (m *MockLLMService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, MockCall{Messages: messages})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	// Default behavior
	return &chat.ChatResponse{
		Message: "Mock response",
	}, nil
}

// ChatStream mocks a streamed completion
func (m *MockLLMService) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, MockCall{Messages: messages})
	fn := m.ChatStreamFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	// Default behavior - one word per chunk
	return StreamText("", "Mock narration"), nil
}

// StreamText returns a closed-on-completion channel replaying reasoning
// and content one word at a time, followed by a Done chunk.
func StreamText(reasoning, content string) <-chan StreamChunk {
	rWords := strings.SplitAfter(reasoning, " ")
	cWords := strings.SplitAfter(content, " ")
	out := make(chan StreamChunk, len(rWords)+len(cWords)+1)
	for _, w := range rWords {
		if w != "" {
			out <- StreamChunk{Reasoning: w}
		}
	}
	for _, w := range cWords {
		if w != "" {
			out <- StreamChunk{Content: w}
		}
	}
	out <- StreamChunk{Done: true}
	close(out)
	return out
}

// SetChatResponse sets up the mock to return message on Chat
func (m *MockLLMService) SetChatResponse(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: message}, nil
	}
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMService) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetStreamText sets up the mock to stream reasoning then content
func (m *MockLLMService) SetStreamText(reasoning, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatStreamFunc = func(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
		return StreamText(reasoning, content), nil
	}
}

// SetStreamError sets up the mock to fail before streaming
func (m *MockLLMService) SetStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatStreamFunc = func(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
		return nil, err
	}
}

// Reset clears all call tracking
func (m *MockLLMService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = make([]MockCall, 0)
	m.StreamCalls = make([]MockCall, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMService) GetCalls() ([]MockCall, []MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatCalls := make([]MockCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	streamCalls := make([]MockCall, len(m.StreamCalls))
	copy(streamCalls, m.StreamCalls)

	return chatCalls, streamCalls
}
