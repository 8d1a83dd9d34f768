package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/pale-notes/internal/logger"
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/prompts"
	"github.com/jwebster45206/pale-notes/pkg/repair"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/story"
)

// Action is one player input: an option id, free text, or both.
type Action struct {
	ID   string
	Text string
}

// HandleAction runs one full turn for action. It returns ErrBusy when a
// turn is already running.
func (e *Engine) HandleAction(ctx context.Context, action Action) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.finish()
	return e.dispatch(ctx, action)
}

// Retry restores the snapshot taken before the last action and runs that
// action again from scratch. The narration will usually differ.
func (e *Engine) Retry(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.finish()

	e.mu.Lock()
	last := e.lastAction
	if last == nil {
		e.mu.Unlock()
		return ErrNoLastAction
	}
	if !e.gs.RestoreSnapshot() {
		e.mu.Unlock()
		return ErrNoSnapshot
	}
	action := *last
	e.mu.Unlock()

	e.logger.Info("Retrying last action", "action_id", action.ID)
	return e.dispatch(ctx, action)
}

func (e *Engine) finish() {
	e.setPhase(PhaseIdle)
	e.busy.Store(false)
	e.render("", "")
}

func (e *Engine) dispatch(ctx context.Context, action Action) error {
	e.mu.Lock()
	if err := e.gs.SaveSnapshot(); err != nil {
		e.mu.Unlock()
		return e.fail(err)
	}
	if action.Text == "" {
		if opt, ok := e.gs.FindOption(action.ID); ok {
			action.Text = opt.Text
		}
	}
	last := action
	e.lastAction = &last
	e.lastErr = nil
	e.gs.Started = true

	w := e.newWorker()
	e.applyChoice(action, w)
	e.mu.Unlock()

	return e.runTurn(ctx, action, w)
}

func (e *Engine) newWorker() *state.EffectWorker {
	w := state.NewEffectWorker(e.gs, e.logger).WithLedger(e.progress)
	if e.catalog != nil {
		w = w.WithCatalog(e.catalog)
	}
	return w
}

// applyChoice handles a chosen option before narration: scripted option
// effects and event transitions, then aspect reinforcement from the
// option's style. Caller holds mu.
func (e *Engine) applyChoice(action Action, w *state.EffectWorker) {
	gs := e.gs

	if id := gs.Story.ActiveEventID; id != "" && e.catalog != nil {
		if ev := e.catalog.Event(id); ev != nil {
			if opt, ok := ev.Option(action.ID); ok && story.IsOptionAvailable(opt, gs) {
				e.logger.Info("Event option selected", "event_id", ev.ID, "option_id", opt.ID)
				w.ApplyAll(opt.Effects)
				gs.CompleteEvent(ev.ID)
				if opt.NextEventID != "" {
					if next := e.catalog.Event(opt.NextEventID); next != nil {
						e.enterEvent(next, w)
					} else {
						e.logger.Warn("Unknown next event", "event_id", opt.NextEventID)
					}
				}
			}
		}
	}

	if opt, ok := gs.FindOption(action.ID); ok && state.IsAspect(opt.Style) {
		if err := w.Apply(state.ModifyAspect{Aspect: opt.Style, Delta: 1}); err != nil {
			e.logger.Warn("Failed to reinforce aspect", "aspect", opt.Style, "error", err)
		}
	}
}

// enterEvent activates ev, records it in the ledger and runs its onEnter
// effects. Caller holds mu.
func (e *Engine) enterEvent(ev *story.StoryEvent, w *state.EffectWorker) {
	e.gs.SetActiveEvent(ev.ID)
	e.progress.AddKeyEvent(ev.ID)
	e.logger.Info("Story event triggered", "event_id", ev.ID)
	w.ApplyAll(ev.OnEnter)
}

func (e *Engine) runTurn(ctx context.Context, action Action, w *state.EffectWorker) error {
	e.maybeSummarize()

	// Building context
	e.setPhase(PhaseBuildingContext)
	e.render("", "")

	e.mu.Lock()
	turn := e.turnCount
	sc := e.storyContext(w)
	messages, err := prompts.New().
		WithGameState(e.gs).
		WithAction(action.Text).
		WithStoryContext(sc).
		WithHistoryLimit(e.opts.HistoryWindow).
		Build()
	e.mu.Unlock()
	log := logger.WithTurn(e.logger, turn)
	if err != nil {
		return e.abort(fmt.Errorf("failed to build context: %w", err))
	}

	// Streaming narration
	e.setPhase(PhaseStreamingNarration)
	narration, reasoning, err := e.stream(ctx, messages)
	if err != nil {
		logger.WithError(log, err).Error("Narration failed")
		return e.abort(err)
	}

	// Narration committed. Nothing below rolls this back.
	e.mu.Lock()
	e.gs.AppendHistory(chat.ChatRoleUser, action.Text)
	e.gs.AppendHistory(chat.ChatRoleAgent, narration)
	req := prompts.NewAnalysisRequest(e.gs, action.Text, narration, sc)
	e.debug = DebugInfo{Reasoning: reasoning}
	e.mu.Unlock()
	e.setPhase(PhaseNarrationCommitted)
	e.render("", "")

	// Analyzing
	e.setPhase(PhaseAnalyzing)
	e.render("", "")
	analysisMessages, raw, err := prompts.AnalysisMessages(req)
	if err != nil {
		return e.failAfterCommit(ctx, w, err)
	}
	e.mu.Lock()
	e.debug.AnalysisInput = raw
	e.mu.Unlock()

	resp, err := e.llm.Chat(ctx, analysisMessages)
	if err != nil {
		logger.WithError(log, err).Error("Analysis call failed")
		return e.failAfterCommit(ctx, w, err)
	}
	e.mu.Lock()
	e.debug.AnalysisOutput = resp.Message
	e.mu.Unlock()

	// Applying effects
	e.setPhase(PhaseApplyingEffects)
	var analysis prompts.AnalysisResponse
	if err := repair.Unmarshal(resp.Message, &analysis); err != nil {
		logger.WithError(log, err).Error("Failed to parse analysis output")
		return e.failAfterCommit(ctx, w, err)
	}

	effects, decodeErrs := state.DecodeEffects(analysis.StateChanges)
	for _, derr := range decodeErrs {
		log.Warn("Skipping state change", "error", derr)
	}

	e.mu.Lock()
	w.ApplyAll(effects)
	if analysis.Options == nil {
		analysis.Options = make([]state.Option, 0)
	}
	e.gs.CurrentOptions = analysis.Options
	e.gs.UpdatePacing(len(e.gs.CurrentOptions))
	w.Flush()
	e.mu.Unlock()

	log.Info("Turn complete",
		"effects", len(effects),
		"options", len(analysis.Options))

	if err := e.persist(ctx); err != nil {
		logger.WithError(log, err).Error("Failed to persist turn")
		return e.fail(err)
	}
	return nil
}

// maybeSummarize hands a detached copy of the history to the summarizer
// every SummaryInterval turns, then counts this turn.
func (e *Engine) maybeSummarize() {
	e.mu.Lock()
	n := e.turnCount
	e.turnCount++
	var job *summaryJob
	if n > 0 && n%e.opts.SummaryInterval == 0 {
		job = &summaryJob{
			gameID:   e.gs.ID,
			history:  e.gs.RecentHistory(len(e.gs.History)),
			previous: e.gs.Summary,
		}
	}
	e.mu.Unlock()

	if job != nil {
		e.summarizer.Submit(*job)
	}
}

// storyContext resolves the governing event for this turn, activating a
// newly triggered one, and describes it for the narrator. Caller holds mu.
func (e *Engine) storyContext(w *state.EffectWorker) prompts.StoryContext {
	if e.catalog == nil {
		return prompts.StoryContext{}
	}
	gs := e.gs

	var ev *story.StoryEvent
	if id := gs.Story.ActiveEventID; id != "" {
		if ev = e.catalog.Event(id); ev == nil {
			e.logger.Warn("Active event not in catalog", "event_id", id)
			gs.ClearActiveEvent()
		}
	}
	if ev == nil {
		if ev = e.catalog.SelectEvent(gs); ev != nil {
			e.enterEvent(ev, w)
		}
	}

	if ev == nil {
		var sc prompts.StoryContext
		if titles := e.catalog.Titles(gs.Story.CompletedEvents); len(titles) > 0 {
			sc.Text = fmt.Sprintf("[Story status]: The player has already completed the following events: %s. "+
				"Do not offer options that repeat them unless new context arises. Focus on new exploration.",
				strings.Join(titles, ", "))
		}
		return sc
	}

	sc := prompts.StoryContext{Principle: ev.PrincipleGuide}
	if ev.IsStatic {
		sc.Text = fmt.Sprintf("[Story event: %s]\nRender this passage faithfully, keeping its wording:\n%s", ev.DisplayTitle(), ev.Text)
	} else {
		sc.Text = fmt.Sprintf("[Story event: %s]\n%s", ev.DisplayTitle(), ev.Text)
	}

	opts := story.AvailableOptions(ev, gs)
	if len(opts) == 0 {
		return sc
	}
	offered := make([]state.Option, len(opts))
	for i, o := range opts {
		offered[i] = state.Option{ID: o.ID, Text: o.Text, Style: state.AspectNeutral}
	}
	// A scripted passage keeps its choices as written; a prompted event
	// lets the narrator add its own alongside them.
	if ev.IsStatic {
		sc.Required = offered
	} else {
		sc.Goal = offered
	}
	return sc
}

// stream drains the narration stream, rendering both accumulators as
// they grow.
func (e *Engine) stream(ctx context.Context, messages []chat.ChatMessage) (string, string, error) {
	chunks, err := e.llm.ChatStream(ctx, messages)
	if err != nil {
		return "", "", err
	}

	var content, reasoning strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", "", chunk.Error
		}
		if chunk.Content != "" || chunk.Reasoning != "" {
			content.WriteString(chunk.Content)
			reasoning.WriteString(chunk.Reasoning)
			e.render(content.String(), reasoning.String())
		}
		if chunk.Done {
			break
		}
	}
	return content.String(), reasoning.String(), nil
}

// abort ends a turn that failed before narration was committed. The state
// goes back to the snapshot, which is re-armed so Retry still works.
func (e *Engine) abort(err error) error {
	e.mu.Lock()
	if e.gs.RestoreSnapshot() {
		if serr := e.gs.SaveSnapshot(); serr != nil {
			e.logger.Error("Failed to re-arm snapshot", "error", serr)
		}
	}
	e.mu.Unlock()
	return e.fail(err)
}

// failAfterCommit keeps the committed narration and any scripted effects,
// records their log lines, and applies nothing from the analysis.
func (e *Engine) failAfterCommit(ctx context.Context, w *state.EffectWorker, err error) error {
	e.mu.Lock()
	w.Flush()
	e.mu.Unlock()
	if perr := e.persist(ctx); perr != nil {
		e.logger.Error("Failed to persist after error", "error", perr)
	}

	var pe *repair.ParseError
	if errors.As(err, &pe) {
		err = fmt.Errorf("failed to parse game state updates: %w", err)
	}
	return e.fail(err)
}

func (e *Engine) fail(err error) error {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	return err
}
