package story

import "github.com/jwebster45206/pale-notes/pkg/state"

// StoryEvent is one scripted beat. Events are immutable after load.
type StoryEvent struct {
	ID    string
	Title string
	// Text is shown verbatim when IsStatic, otherwise it is an
	// instruction for the narrator.
	Text           string
	IsStatic       bool
	Options        []StoryOption
	Triggers       []Trigger
	OnEnter        []state.Effect
	ChapterID      *int
	PrincipleGuide string
}

// StoryOption is a choice offered by an event.
type StoryOption struct {
	ID          string
	Text        string
	Style       string
	Requires    []Trigger
	Effects     []state.Effect
	NextEventID string
}

// Option finds the option with id.
func (e *StoryEvent) Option(id string) (StoryOption, bool) {
	for _, o := range e.Options {
		if o.ID == id {
			return o, true
		}
	}
	return StoryOption{}, false
}

// DisplayTitle falls back to the id when an event has no title.
func (e *StoryEvent) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}
