package main

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/pale-notes/internal/engine"
	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

// Every engine call that can render runs inside a tea.Cmd. Calling one
// from Update would block on p.Send while the event loop is busy.

// viewMsg carries a frame rendered by the engine.
type viewMsg struct {
	view engine.View
}

// turnDoneMsg is sent when HandleAction or Retry returns.
type turnDoneMsg struct {
	err error
}

type gameStartedMsg struct {
	err error
}

type prefsSavedMsg struct {
	err error
}

type summaryErrMsg struct {
	err error
}

// programPresenter forwards engine frames to the running program. Frames
// arriving before Attach are dropped.
type programPresenter struct {
	p atomic.Pointer[tea.Program]
}

func (pp *programPresenter) Attach(p *tea.Program) {
	pp.p.Store(p)
}

func (pp *programPresenter) Render(v engine.View) {
	if p := pp.p.Load(); p != nil {
		p.Send(viewMsg{view: v})
	}
}

func drainSummaryErrors(eng *engine.Engine, p *tea.Program) {
	for err := range eng.SummaryErrors() {
		p.Send(summaryErrMsg{err: err})
	}
}

func sendAction(eng *engine.Engine, action engine.Action) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: eng.HandleAction(context.Background(), action)}
	}
}

func retryTurn(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: eng.Retry(context.Background())}
	}
}

func startGame(eng *engine.Engine, name, origin string) tea.Cmd {
	return func() tea.Msg {
		return gameStartedMsg{err: eng.NewGame(context.Background(), state.Profile{Name: name}, origin)}
	}
}

func continueGame(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		eng.Continue()
		return gameStartedMsg{}
	}
}

func savePreferences(store storage.Storage, prefs meta.Preferences) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{err: store.SavePreferences(context.Background(), &prefs)}
	}
}
