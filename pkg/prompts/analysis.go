package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// AnalysisRequest is the user payload of the analysis call.
type AnalysisRequest struct {
	UserAction      string         `json:"userAction"`
	NarrativeOutput string         `json:"narrativeOutput"`
	StoryContext    string         `json:"storyContext,omitempty"`
	RequiredOptions []state.Option `json:"requiredOptions,omitempty"`
	GoalOptions     []state.Option `json:"goalOptions,omitempty"`
	CurrentState    CurrentState   `json:"currentState"`
}

type CurrentState struct {
	Resources  state.Resources   `json:"resources"`
	Aspects    state.Aspects     `json:"aspects"`
	Inventory  []state.Item      `json:"inventory"`
	Facts      []state.Fact      `json:"facts"`
	Story      state.StoryState  `json:"story"`
	Characters []state.Character `json:"characters"`
	Location   string            `json:"location"`
	Time       state.GameTime    `json:"time"`
}

// AnalysisResponse is the JSON object the analysis call is asked to return.
type AnalysisResponse struct {
	StateChanges []json.RawMessage `json:"stateChanges"`
	Options      []state.Option    `json:"options"`
}

// NewAnalysisRequest captures the action, the narration just produced and
// the current state.
func NewAnalysisRequest(gs *state.GameState, action, narration string, sc StoryContext) AnalysisRequest {
	return AnalysisRequest{
		UserAction:      action,
		NarrativeOutput: narration,
		StoryContext:    sc.Text,
		RequiredOptions: sc.Required,
		GoalOptions:     sc.Goal,
		CurrentState: CurrentState{
			Resources:  gs.Resources,
			Aspects:    gs.Aspects,
			Inventory:  gs.Inventory,
			Facts:      gs.Facts,
			Story:      gs.Story,
			Characters: gs.Characters,
			Location:   gs.Location,
			Time:       gs.Time,
		},
	}
}

// AnalysisMessages returns the messages for the analysis call along with
// the serialised request, which callers keep for debugging.
func AnalysisMessages(req AnalysisRequest) ([]chat.ChatMessage, string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal analysis request: %w", err)
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: AnalysisPrompt},
		{Role: chat.ChatRoleUser, Content: string(data)},
	}, string(data), nil
}

// SummaryMessages builds the summarization call for everything except the
// last keep history entries. It returns false when history is shorter than
// minHistory or there is nothing older than the kept window.
func SummaryMessages(history []chat.ChatMessage, previous string, minHistory, keep int) ([]chat.ChatMessage, bool) {
	if len(history) < minHistory || len(history) <= keep {
		return nil, false
	}
	older := history[:len(history)-keep]

	var prev string
	if previous != "" {
		prev = "Previous Summary: " + previous + "\n"
	}
	text := fmt.Sprintf(SummaryPromptTemplate, prev, chat.Transcript(older))

	return []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: strings.TrimSpace(text)}}, true
}
