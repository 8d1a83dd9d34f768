package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// DefaultHistoryLimit is the number of history entries sent with narration.
const DefaultHistoryLimit = 10

// Builder constructs the narration call messages using a fluent interface.
type Builder struct {
	gs           *state.GameState
	action       string
	story        StoryContext
	historyLimit int
	messages     []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithGameState sets the state the context is built from.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithAction sets the player's action text.
func (b *Builder) WithAction(text string) *Builder {
	b.action = text
	return b
}

// WithStoryContext sets the active event text and option lists.
func (b *Builder) WithStoryContext(sc StoryContext) *Builder {
	b.story = sc
	return b
}

// WithHistoryLimit sets the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Context returns the payload without serialising it.
func (b *Builder) Context() (ContextPayload, error) {
	if b.gs == nil {
		return ContextPayload{}, fmt.Errorf("gamestate is required")
	}
	return NewContextPayload(b.gs, b.action, b.story), nil
}

// Build returns, in order: the narrator system prompt, the rolling summary
// when there is one, the windowed history, and the context payload as the
// final user message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	payload, err := b.Context()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}

	b.messages = make([]chat.ChatMessage, 0, b.historyLimit+3)
	b.messages = append(b.messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: NarrativePrompt})

	if b.gs.Summary != "" {
		b.messages = append(b.messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: SummaryHeader + b.gs.Summary,
		})
	}

	b.messages = append(b.messages, b.gs.RecentHistory(b.historyLimit)...)

	b.messages = append(b.messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: string(data)})
	return b.messages, nil
}
