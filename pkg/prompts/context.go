package prompts

import (
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// ContextPayload is the JSON document sent as the final user message of
// the narration call.
type ContextPayload struct {
	PlayerState     PlayerState    `json:"playerState"`
	WorldState      WorldState     `json:"worldState"`
	UserAction      string         `json:"userAction"`
	StoryContext    string         `json:"storyContext,omitempty"`
	RequiredOptions []state.Option `json:"requiredOptions,omitempty"`
	GoalOptions     []state.Option `json:"goalOptions,omitempty"`
	PrincipleGuide  string         `json:"principleGuide,omitempty"`
	ChapterGuide    string         `json:"chapterGuide,omitempty"`
	PreviousSummary string         `json:"previousSummary"`
}

type PlayerState struct {
	Profile           state.Profile     `json:"profile"`
	Resources         state.Resources   `json:"resources"`
	Aspects           state.Aspects     `json:"aspects"`
	DominantPrinciple string            `json:"dominantPrinciple"`
	Inventory         []string          `json:"inventory"`
	Tags              []string          `json:"tags"`
	Story             StorySummary      `json:"story"`
	KnownFacts        []string          `json:"knownFacts"`
	ReadBooks         []string          `json:"readBooks"`
	MasteredLores     []string          `json:"masteredLores"`
	Rites             []state.Rite      `json:"rites"`
	Languages         []state.Language  `json:"languages"`
	Relationships     []state.Character `json:"relationships"`
	UnlockedDoors     []string          `json:"unlockedDoors"`
}

type StorySummary struct {
	Chapter       int    `json:"chapter"`
	Origin        string `json:"origin,omitempty"`
	ActiveEventID string `json:"activeEventId,omitempty"`
}

type WorldState struct {
	Location                 string         `json:"location"`
	Time                     state.GameTime `json:"time"`
	Identity                 string         `json:"identity"`
	TurnsSinceLastMajorEvent int            `json:"turnsSinceLastMajorEvent"`
}

// StoryContext is the scripted-event material for one turn.
type StoryContext struct {
	Text     string
	Required []state.Option
	Goal     []state.Option

	// Principle overrides the dominant aspect when choosing the tone guide.
	Principle string
}

// NewContextPayload assembles the payload for gs and the player's action.
func NewContextPayload(gs *state.GameState, action string, sc StoryContext) ContextPayload {
	dominant := DominantAspect(gs.Aspects)
	tone := ToneGuides[dominant]
	if g, ok := ToneGuides[sc.Principle]; ok {
		tone = g
	}

	inventory := make([]string, len(gs.Inventory))
	for i, it := range gs.Inventory {
		inventory[i] = it.ID
	}

	return ContextPayload{
		PlayerState: PlayerState{
			Profile:           gs.Player,
			Resources:         gs.Resources,
			Aspects:           gs.Aspects,
			DominantPrinciple: dominant,
			Inventory:         inventory,
			Tags:              gs.Tags,
			Story: StorySummary{
				Chapter:       gs.Story.CurrentChapter,
				Origin:        gs.Story.Origin,
				ActiveEventID: gs.Story.ActiveEventID,
			},
			KnownFacts:    gs.KnownFacts,
			ReadBooks:     gs.ReadBooks,
			MasteredLores: gs.MasteredLores,
			Rites:         gs.Rites,
			Languages:     gs.Languages,
			Relationships: gs.Characters,
			UnlockedDoors: gs.UnlockedDoors,
		},
		WorldState: WorldState{
			Location:                 gs.Location,
			Time:                     gs.Time,
			Identity:                 gs.Identity,
			TurnsSinceLastMajorEvent: gs.TurnsSinceLastMajorEvent,
		},
		UserAction:      action,
		StoryContext:    sc.Text,
		RequiredOptions: sc.Required,
		GoalOptions:     sc.Goal,
		PrincipleGuide:  tone,
		ChapterGuide:    ChapterGuides[ChapterKey(gs.Story.CurrentChapter)],
		PreviousSummary: gs.Summary,
	}
}
