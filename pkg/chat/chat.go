package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player action
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instructions or engine notes
)

// ChatMessage represents a single role-tagged entry. It is both the wire
// shape sent to the chat completions API and the entry type of the
// narrative history.
type ChatMessage struct {
	Role      string `json:"role"` // "user", "assistant", "system"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix millis
}

// ChatResponse is the result of a non-streamed completion.
type ChatResponse struct {
	Message   string `json:"message,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ChatRequest is the body sent to an OpenAI-compatible chat completions endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []WireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// WireMessage drops local-only fields from ChatMessage.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToWire converts history entries into request messages.
func ToWire(messages []ChatMessage) []WireMessage {
	out := make([]WireMessage, len(messages))
	for i, m := range messages {
		out[i] = WireMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// Validate checks that the request carries something to send.
func (r *ChatRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for i, m := range r.Messages {
		if !IsValidRole(m.Role) {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
	}
	return nil
}

// IsValidRole reports whether role is one of the three chat roles.
func IsValidRole(role string) bool {
	switch role {
	case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
		return true
	}
	return false
}

// Transcript flattens messages into "role: content" lines.
func Transcript(messages []ChatMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
