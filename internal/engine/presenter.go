package engine

import (
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// View is everything a presentation layer needs to draw one frame.
type View struct {
	History       []chat.ChatMessage
	LiveNarration string
	LiveReasoning string
	Options       []state.Option

	Resources state.Resources
	Aspects   state.Aspects
	Location  string
	Identity  string
	Chapter   int
	Time      state.GameTime
	Started   bool

	Busy     bool
	Phase    Phase
	CanRetry bool
	Err      error
}

// Presenter receives a new View whenever visible state changes. Render is
// called from the goroutine running the turn and must not block.
type Presenter interface {
	Render(View)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(View)

func (f PresenterFunc) Render(v View) { f(v) }

type nopPresenter struct{}

func (nopPresenter) Render(View) {}
