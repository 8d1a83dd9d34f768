package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

const (
	completionsPath = "/chat/completions"
	msgNoResponse   = "(no response)"
)

// OpenAIService implements LLMService for any OpenAI-compatible chat
// completions endpoint (DeepSeek by default).
type OpenAIService struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

// OpenAIChatResponse is the non-streamed response body.
type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role             string `json:"role"`
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a client. A zero timeout means no client-side
// timeout.
func NewOpenAIService(baseURL, apiKey, modelName string, timeout time.Duration, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		baseURL:   NormalizeBaseURL(baseURL),
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// NormalizeBaseURL trims a trailing slash and appends the completions path
// when it is missing.
func NormalizeBaseURL(baseURL string) string {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(u, completionsPath) {
		u += completionsPath
	}
	return u
}

// URL returns the full completions endpoint.
func (s *OpenAIService) URL() string {
	return s.baseURL
}

// Chat generates a non-streamed response.
func (s *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	resp, err := s.post(ctx, messages, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out OpenAIChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return &chat.ChatResponse{Message: msgNoResponse}, nil
	}

	return &chat.ChatResponse{
		Message:   out.Choices[0].Message.Content,
		Reasoning: out.Choices[0].Message.ReasoningContent,
	}, nil
}

// ChatStream starts a streamed completion. Transport failures are returned
// directly; decode problems inside the stream are logged and skipped.
func (s *OpenAIService) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
	resp, err := s.post(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		if err := DecodeStream(ctx, resp.Body, out, s.logger); err != nil {
			select {
			case out <- StreamChunk{Error: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// post sends the request and returns the response only when the status is
// 200. The caller closes the body.
func (s *OpenAIService) post(ctx context.Context, messages []chat.ChatMessage, stream bool) (*http.Response, error) {
	req := chat.ChatRequest{
		Model:    s.modelName,
		Messages: chat.ToWire(messages),
		Stream:   stream,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat request: %w", err)
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	s.logger.Debug("Sending chat request",
		"url", s.baseURL,
		"model", s.modelName,
		"stream", stream,
		"message_count", len(messages))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("Chat endpoint returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body))
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
