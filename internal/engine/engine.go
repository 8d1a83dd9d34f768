package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jwebster45206/pale-notes/internal/services"
	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/prompts"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
	"github.com/jwebster45206/pale-notes/pkg/story"
)

var (
	// ErrBusy is returned when a turn is dispatched while another is in flight.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrNoLastAction is returned by Retry before any action was dispatched.
	ErrNoLastAction = errors.New("no action to retry")
	// ErrNoSnapshot is returned by Retry when the rollback slot is empty.
	ErrNoSnapshot = errors.New("no snapshot to restore")
)

// Options tunes the pipeline. Zero values take the defaults.
type Options struct {
	HistoryWindow     int
	SummaryInterval   int
	SummaryMinHistory int
}

func (o Options) withDefaults() Options {
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = prompts.DefaultHistoryLimit
	}
	if o.SummaryInterval <= 0 {
		o.SummaryInterval = 5
	}
	if o.SummaryMinHistory <= 0 {
		o.SummaryMinHistory = 10
	}
	return o
}

// Deps are the collaborators the engine drives.
type Deps struct {
	LLM       services.LLMService
	Store     storage.Storage
	Catalog   *story.Catalog
	Presenter Presenter
	Logger    *slog.Logger
}

// DebugInfo is the last analysis exchange, kept for inspection.
type DebugInfo struct {
	AnalysisInput  string
	AnalysisOutput string
	Reasoning      string
}

// Engine runs turns against one game state. All state access goes through
// mu; network calls are made without holding it.
type Engine struct {
	llm       services.LLMService
	store     storage.Storage
	catalog   *story.Catalog
	presenter Presenter
	logger    *slog.Logger
	opts      Options

	mu         sync.Mutex
	gs         *state.GameState
	progress   *meta.Progress
	turnCount  int
	lastAction *Action
	lastErr    error
	debug      DebugInfo

	busy  atomic.Bool
	phase atomic.Int32

	summarizer *Summarizer
	cancel     context.CancelFunc
}

// New creates an engine holding a fresh game. Call Close to stop the
// background summarizer.
func New(deps Deps, opts Options) *Engine {
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Store == nil {
		deps.Store = storage.NewMemoryStorage()
	}
	opts = opts.withDefaults()

	e := &Engine{
		llm:       deps.LLM,
		store:     deps.Store,
		catalog:   deps.Catalog,
		presenter: deps.Presenter,
		logger:    deps.Logger,
		opts:      opts,
		gs:        state.NewGameState(),
		progress:  meta.NewProgress(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.summarizer = NewSummarizer(deps.LLM, e.setSummary, deps.Logger, opts.SummaryMinHistory, opts.HistoryWindow)
	e.summarizer.Start(ctx)
	return e
}

// Close stops the summarizer. In-flight summaries are abandoned.
func (e *Engine) Close() {
	e.cancel()
	e.summarizer.Close()
}

// Load restores the persisted game and progress ledger. It reports whether
// a saved game was found. The loaded game is never marked started and has
// no snapshot.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	gs, err := e.store.LoadGame(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load game: %w", err)
	}
	progress, err := e.store.LoadProgress(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load progress: %w", err)
	}

	e.mu.Lock()
	if progress != nil {
		e.progress = progress
	}
	if gs != nil {
		e.gs = gs
		e.turnCount = 0
		e.lastAction = nil
	}
	e.mu.Unlock()

	e.render("", "")
	return gs != nil, nil
}

// NewGame discards the current game and starts over with profile and origin.
func (e *Engine) NewGame(ctx context.Context, profile state.Profile, origin string) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	gs := state.NewGameState()
	if profile.Name != "" {
		gs.Player = profile
	}
	gs.Story.Origin = origin
	gs.Started = true

	e.mu.Lock()
	e.gs = gs
	e.turnCount = 0
	e.lastAction = nil
	e.lastErr = nil
	e.debug = DebugInfo{}
	e.mu.Unlock()

	e.logger.Info("New game started", "game_id", gs.ID, "origin", origin)
	err := e.persist(ctx)
	e.render("", "")
	return err
}

// Continue marks a loaded game as started for this session.
func (e *Engine) Continue() {
	e.mu.Lock()
	e.gs.Started = true
	e.mu.Unlock()
	e.render("", "")
}

// Busy reports whether a turn is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Phase returns the current pipeline phase.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Debug returns the last analysis exchange.
func (e *Engine) Debug() DebugInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

// Progress returns a copy of the cross-game ledger.
func (e *Engine) Progress() *meta.Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress.Copy()
}

// State returns a deep copy of the game state.
func (e *Engine) State() (*state.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gs.Clone()
}

// SummaryErrors exposes the background summarizer's error sink.
func (e *Engine) SummaryErrors() <-chan error {
	return e.summarizer.Errors()
}

// View builds the current frame.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked("", "")
}

func (e *Engine) viewLocked(narration, reasoning string) View {
	gs := e.gs
	return View{
		History:       slices.Clone(gs.History),
		LiveNarration: narration,
		LiveReasoning: reasoning,
		Options:       slices.Clone(gs.CurrentOptions),
		Resources:     gs.Resources,
		Aspects:       gs.Aspects,
		Location:      gs.Location,
		Identity:      gs.Identity,
		Chapter:       gs.Story.CurrentChapter,
		Time:          gs.Time,
		Started:       gs.Started,
		Busy:          e.busy.Load(),
		Phase:         e.Phase(),
		CanRetry:      e.lastAction != nil && gs.HasSnapshot(),
		Err:           e.lastErr,
	}
}

func (e *Engine) render(narration, reasoning string) {
	e.mu.Lock()
	v := e.viewLocked(narration, reasoning)
	e.mu.Unlock()
	e.presenter.Render(v)
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
}

func (e *Engine) setSummary(gameID uuid.UUID, summary string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gs.ID != gameID {
		e.logger.Debug("Discarding summary for a previous game", "game_id", gameID)
		return
	}
	e.gs.Summary = summary
}

// persist saves a copy of the game and the ledger.
func (e *Engine) persist(ctx context.Context) error {
	e.mu.Lock()
	gs, err := e.gs.Clone()
	progress := e.progress
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := e.store.SaveGame(ctx, gs); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if err := e.store.SaveProgress(ctx, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
