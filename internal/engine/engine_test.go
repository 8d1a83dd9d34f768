package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/pale-notes/internal/services"
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/prompts"
	"github.com/jwebster45206/pale-notes/pkg/repair"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
	"github.com/jwebster45206/pale-notes/pkg/story"
)

const testCatalogYAML = `
items:
  - id: book_moth_1
    name: Wings Against the Glass
    description: A restless book.
    tags: [book, moth]
events:
  - id: prologue_rich
    title: "Prologue: Embers"
    isStatic: true
    text: The house is quiet.
    triggers:
      - { type: chapter_start, chapterId: 0 }
      - { type: origin_is, origin: rich }
    onEnter:
      - { type: ADD_TAG, value: Heir }
    options:
      - id: open_letter
        text: Open the letter.
        effects:
          - { type: MODIFY_RESOURCE, target: funds, value: 10 }
        nextEventId: chapter_1_start
  - id: chapter_1_start
    title: Chapter One
    isStatic: false
    text: Describe the city at night.
    principleGuide: winter
    onEnter:
      - { type: SET_CHAPTER, value: 1 }
    options:
      - id: go_inside
        text: Go inside.
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func analysisReply(changes, options string) string {
	return "Analysis complete.\n```json\n{\"stateChanges\": " + changes + ", \"options\": " + options + "}\n```"
}

// recorder is a Presenter that keeps every view it receives.
type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

type fixture struct {
	engine *Engine
	llm    *services.MockLLMService
	store  *storage.MemoryStorage
	views  *recorder
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	catalog, err := story.ParseCatalog([]byte(testCatalogYAML), story.FormatYAML)
	require.NoError(t, err)

	f := &fixture{
		llm:   services.NewMockLLMService(),
		store: storage.NewMemoryStorage(),
		views: &recorder{},
	}
	f.llm.SetChatResponse(analysisReply("[]", "[]"))
	f.engine = New(Deps{
		LLM:       f.llm,
		Store:     f.store,
		Catalog:   catalog,
		Presenter: f.views,
		Logger:    testLogger(),
	}, opts)
	t.Cleanup(f.engine.Close)
	return f
}

func mustState(t *testing.T, e *Engine) *state.GameState {
	t.Helper()
	gs, err := e.State()
	require.NoError(t, err)
	return gs
}

func TestHandleAction_FreeFormTurn(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.engine.NewGame(ctx, state.Profile{Name: "Ada"}, "doctor"))

	// Push the doctor past the prologue so no event fires.
	f.engine.mu.Lock()
	f.engine.gs.Story.CurrentChapter = 3
	f.engine.gs.TurnsSinceLastMajorEvent = 4
	f.engine.mu.Unlock()

	f.llm.SetStreamText("consider the fog", "The fog thickens around you.")
	f.llm.SetChatResponse(analysisReply(
		`[{"type":"MODIFY_RESOURCE","target":"funds","value":5},{"type":"SUMMON_DEMON"},{"type":"ADD_ITEM","target":"brass_key"}]`,
		`[{"id":"wait","text":"Wait.","style":"winter"}]`))

	require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Walk to the river."}))

	gs := mustState(t, f.engine)
	assert.Equal(t, 5, gs.Resources.Funds)
	require.True(t, gs.HasItem("brass_key"))
	assert.Equal(t, "Brass Key", gs.Inventory[0].Name)
	assert.Equal(t, []state.Option{{ID: "wait", Text: "Wait.", Style: "winter"}}, gs.CurrentOptions)
	assert.Equal(t, 0, gs.TurnsSinceLastMajorEvent, "one option resets pacing")

	require.Len(t, gs.History, 3)
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleUser, Content: "Walk to the river.", Timestamp: gs.History[0].Timestamp}, gs.History[0])
	assert.Equal(t, "The fog thickens around you.", gs.History[1].Content)
	assert.Equal(t, chat.ChatRoleSystem, gs.History[2].Role)
	assert.Contains(t, gs.History[2].Content, "funds +5")
	assert.Contains(t, gs.History[2].Content, "Item gained: Brass Key")

	debug := f.engine.Debug()
	assert.Equal(t, "consider the fog", debug.Reasoning)
	assert.Contains(t, debug.AnalysisInput, "The fog thickens around you.")
	assert.Contains(t, debug.AnalysisOutput, "SUMMON_DEMON")

	saved, err := f.store.LoadGame(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.History, 3)

	assert.False(t, f.engine.Busy())
	assert.Equal(t, PhaseIdle, f.engine.Phase())
}

func TestHandleAction_PresenterSeesLiveStream(t *testing.T) {
	f := newFixture(t, Options{})
	f.llm.SetStreamText("", "One two three")

	require.NoError(t, f.engine.HandleAction(context.Background(), Action{Text: "Listen."}))

	views := f.views.all()
	var partial, phases []string
	for _, v := range views {
		if v.LiveNarration != "" {
			partial = append(partial, v.LiveNarration)
			assert.True(t, v.Busy)
		}
		phases = append(phases, v.Phase.String())
	}
	assert.Equal(t, []string{"One ", "One two ", "One two three"}, partial)
	assert.Contains(t, phases, PhaseStreamingNarration.String())
	assert.Contains(t, phases, PhaseAnalyzing.String())

	last := views[len(views)-1]
	assert.False(t, last.Busy)
	assert.Equal(t, PhaseIdle, last.Phase)
	assert.True(t, last.CanRetry)
	assert.NoError(t, last.Err)
}

func TestHandleAction_ScriptedEventFlow(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.engine.NewGame(ctx, state.Profile{Name: "Ada"}, "rich"))

	f.llm.SetStreamText("", "Ash drifts through the hall.")
	f.llm.SetChatResponse(analysisReply("[]", `[{"id":"open_letter","text":"Open the letter."}]`))
	require.NoError(t, f.engine.HandleAction(ctx, Action{ID: "start", Text: "Begin."}))

	gs := mustState(t, f.engine)
	assert.Equal(t, "prologue_rich", gs.Story.ActiveEventID)
	assert.True(t, gs.HasTag("Heir"))
	require.Len(t, gs.History, 3)
	assert.Contains(t, gs.History[2].Content, "Tag: Heir")

	_, streamCalls := f.llm.GetCalls()
	require.Len(t, streamCalls, 1)
	sent := streamCalls[0].Messages
	ctxMsg := sent[len(sent)-1].Content
	assert.Contains(t, ctxMsg, "[Story event: Prologue: Embers]")
	assert.Contains(t, ctxMsg, `"requiredOptions":[{"id":"open_letter","text":"Open the letter.","style":"neutral"}]`)

	// Choosing the scripted option applies its effects and moves along the graph.
	f.llm.SetStreamText("", "The seal breaks.")
	f.llm.SetChatResponse(analysisReply("[]", `[{"id":"go_inside","text":"Go inside."},{"id":"linger","text":"Linger."}]`))
	require.NoError(t, f.engine.HandleAction(ctx, Action{ID: "open_letter"}))

	gs = mustState(t, f.engine)
	assert.Equal(t, 10, gs.Resources.Funds)
	assert.Equal(t, 1, gs.Story.CurrentChapter)
	assert.Equal(t, []string{"prologue_rich"}, gs.Story.CompletedEvents)
	assert.Equal(t, "chapter_1_start", gs.Story.ActiveEventID)
	assert.Equal(t, 1, gs.TurnsSinceLastMajorEvent, "two options increment pacing")

	require.Len(t, gs.History, 6)
	assert.Equal(t, "Open the letter.", gs.History[3].Content, "option text stands in for empty action text")
	assert.Contains(t, gs.History[5].Content, "funds +10")
	assert.Contains(t, gs.History[5].Content, "Chapter 1 begins (prologue complete: rich)")

	_, streamCalls = f.llm.GetCalls()
	sent = streamCalls[1].Messages
	ctxMsg = sent[len(sent)-1].Content
	assert.Contains(t, ctxMsg, `"goalOptions":[{"id":"go_inside","text":"Go inside.","style":"neutral"}]`)
	assert.Contains(t, ctxMsg, prompts.ToneGuides[state.AspectWinter])

	progress := f.engine.Progress()
	assert.True(t, progress.IsOriginComplete("rich"))
	assert.Equal(t, 1, progress.MaxChapterReached)
	assert.Equal(t, []string{"prologue_rich", "chapter_1_start"}, progress.KeyEventsWitnessed)

	savedProgress, err := f.store.LoadProgress(ctx)
	require.NoError(t, err)
	assert.True(t, savedProgress.IsOriginComplete("rich"))
}

func TestHandleAction_CompletedEventsNote(t *testing.T) {
	f := newFixture(t, Options{})
	f.engine.mu.Lock()
	f.engine.gs.Story.CurrentChapter = 2
	f.engine.gs.CompleteEvent("prologue_rich")
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.HandleAction(context.Background(), Action{Text: "Look around."}))

	_, streamCalls := f.llm.GetCalls()
	sent := streamCalls[0].Messages
	assert.Contains(t, sent[len(sent)-1].Content, "already completed the following events: Prologue: Embers")
}

func TestHandleAction_StyleReinforcesAspect(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.llm.SetChatResponse(analysisReply("[]", `[{"id":"a","text":"Follow the moth.","style":"moth"},{"id":"b","text":"Stay.","style":"neutral"}]`))
	require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Look."}))

	require.NoError(t, f.engine.HandleAction(ctx, Action{ID: "a"}))
	gs := mustState(t, f.engine)
	assert.Equal(t, 1, gs.Aspects.Moth)
	assert.Contains(t, gs.History[len(gs.History)-1].Content, "Aspect: moth +1")

	require.NoError(t, f.engine.HandleAction(ctx, Action{ID: "b"}))
	gs = mustState(t, f.engine)
	assert.Equal(t, 1, gs.Aspects.Moth, "neutral style changes nothing")
}

func TestHandleAction_TransportErrorRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.engine.NewGame(ctx, state.Profile{}, "rich"))

	f.llm.SetChatResponse(analysisReply("[]", `[{"id":"open_letter","text":"Open the letter."}]`))
	require.NoError(t, f.engine.HandleAction(ctx, Action{ID: "start", Text: "Begin."}))
	before := mustState(t, f.engine)

	f.llm.SetStreamError(&services.TransportError{StatusCode: 503, Body: "overloaded"})
	err := f.engine.HandleAction(ctx, Action{ID: "open_letter"})
	var te *services.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 503, te.StatusCode)

	gs := mustState(t, f.engine)
	assert.Equal(t, before.Resources, gs.Resources, "option effects are not committed")
	assert.Equal(t, "prologue_rich", gs.Story.ActiveEventID)
	assert.Equal(t, before.History, gs.History)
	assert.False(t, f.engine.Busy())

	v := f.engine.View()
	assert.True(t, v.CanRetry)
	assert.Equal(t, err, v.Err)

	f.llm.SetStreamText("", "The seal breaks.")
	require.NoError(t, f.engine.Retry(ctx))
	gs = mustState(t, f.engine)
	assert.Equal(t, 10, gs.Resources.Funds)
	assert.Equal(t, 1, gs.Story.CurrentChapter)
	assert.NoError(t, f.engine.View().Err)
}

func TestHandleAction_StreamErrorMidway(t *testing.T) {
	f := newFixture(t, Options{})
	f.llm.ChatStreamFunc = func(ctx context.Context, messages []chat.ChatMessage) (<-chan services.StreamChunk, error) {
		out := make(chan services.StreamChunk, 2)
		out <- services.StreamChunk{Content: "Half a sent"}
		out <- services.StreamChunk{Error: errors.New("connection reset")}
		close(out)
		return out, nil
	}

	err := f.engine.HandleAction(context.Background(), Action{Text: "Speak."})
	require.Error(t, err)
	assert.Empty(t, mustState(t, f.engine).History, "partial narration is never committed")
}

func TestHandleAction_ParseErrorKeepsNarration(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.llm.SetChatResponse(analysisReply("[]", `[{"id":"x","text":"X."},{"id":"y","text":"Y."}]`))
	require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "First."}))
	before := mustState(t, f.engine)

	f.llm.SetStreamText("", "The candle gutters.")
	f.llm.SetChatResponse("I could not decide what changed.")
	err := f.engine.HandleAction(ctx, Action{Text: "Second."})

	var pe *repair.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "failed to parse game state updates")

	gs := mustState(t, f.engine)
	require.Len(t, gs.History, len(before.History)+2)
	assert.Equal(t, "The candle gutters.", gs.History[len(gs.History)-1].Content)
	assert.Equal(t, before.CurrentOptions, gs.CurrentOptions)
	assert.Equal(t, before.TurnsSinceLastMajorEvent, gs.TurnsSinceLastMajorEvent)

	saved, err := f.store.LoadGame(ctx)
	require.NoError(t, err)
	assert.Len(t, saved.History, len(gs.History), "committed narration is persisted")
}

func TestHandleAction_AnalysisTransportError(t *testing.T) {
	f := newFixture(t, Options{})
	f.llm.SetChatError(&services.TransportError{StatusCode: 500, Body: "boom"})

	err := f.engine.HandleAction(context.Background(), Action{Text: "Go."})
	var te *services.TransportError
	require.True(t, errors.As(err, &te))
	assert.Len(t, mustState(t, f.engine).History, 2)
}

func TestRetry(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.Retry(ctx), ErrNoLastAction)

	f.llm.SetStreamText("", "First telling.")
	f.llm.SetChatResponse(analysisReply(`[{"type":"MODIFY_RESOURCE","target":"funds","value":3}]`, "[]"))
	require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Knock."}))
	first := mustState(t, f.engine)

	f.llm.SetStreamText("", "Second telling.")
	require.NoError(t, f.engine.Retry(ctx))
	second := mustState(t, f.engine)

	assert.Equal(t, 3, second.Resources.Funds, "effects are not applied twice")
	assert.Len(t, second.History, len(first.History))
	assert.Equal(t, "Second telling.", second.History[1].Content)
	assert.False(t, second.HasSnapshot(), "State returns a copy without the rollback slot")
	assert.True(t, f.engine.View().CanRetry, "retry re-arms the snapshot")

	_, streamCalls := f.llm.GetCalls()
	assert.Len(t, streamCalls, 2, "retry queries the model again")
}

func TestHandleAction_Busy(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.llm.ChatStreamFunc = func(ctx context.Context, messages []chat.ChatMessage) (<-chan services.StreamChunk, error) {
		close(started)
		<-release
		return services.StreamText("", "Done."), nil
	}

	errc := make(chan error, 1)
	go func() { errc <- f.engine.HandleAction(ctx, Action{Text: "Wait."}) }()

	<-started
	assert.True(t, f.engine.Busy())
	assert.ErrorIs(t, f.engine.HandleAction(ctx, Action{Text: "Again."}), ErrBusy)
	assert.ErrorIs(t, f.engine.Retry(ctx), ErrBusy)
	assert.ErrorIs(t, f.engine.NewGame(ctx, state.Profile{}, "rich"), ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, f.engine.Busy())
}

func TestHandleAction_PersistFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.SetSaveError(errors.New("disk full"))

	err := f.engine.HandleAction(context.Background(), Action{Text: "Go."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save game")
}

func TestLoad(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	found, err := f.engine.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	saved := state.NewGameState()
	saved.Location = "The Bookshop"
	require.NoError(t, f.store.SaveGame(ctx, saved))

	found, err = f.engine.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	v := f.engine.View()
	assert.Equal(t, "The Bookshop", v.Location)
	assert.False(t, v.Started)
	assert.False(t, v.CanRetry)

	f.engine.Continue()
	assert.True(t, f.engine.View().Started)
}

func TestSummarization(t *testing.T) {
	f := newFixture(t, Options{HistoryWindow: 2, SummaryInterval: 2, SummaryMinHistory: 2})
	ctx := context.Background()

	var summaryCalls []chat.ChatMessage
	var mu sync.Mutex
	f.llm.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		if messages[0].Content == prompts.AnalysisPrompt {
			return &chat.ChatResponse{Message: analysisReply("[]", "[]")}, nil
		}
		mu.Lock()
		summaryCalls = append(summaryCalls, messages...)
		mu.Unlock()
		return &chat.ChatResponse{Message: "  The player wandered.  "}, nil
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Step."}))
	}

	assert.Eventually(t, func() bool {
		return mustState(t, f.engine).Summary == "The player wandered."
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, summaryCalls, 1, "only the third turn triggers a summary")
	assert.True(t, strings.HasPrefix(summaryCalls[0].Content, "You are a narrative summarizer"))

	// The next narration carries the summary.
	require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Step."}))
	_, streamCalls := f.llm.GetCalls()
	sent := streamCalls[len(streamCalls)-1].Messages
	assert.Equal(t, prompts.SummaryHeader+"The player wandered.", sent[1].Content)
}

func TestSummarization_ErrorSink(t *testing.T) {
	f := newFixture(t, Options{HistoryWindow: 2, SummaryInterval: 1, SummaryMinHistory: 2})
	ctx := context.Background()

	f.llm.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		if messages[0].Content == prompts.AnalysisPrompt {
			return &chat.ChatResponse{Message: analysisReply("[]", "[]")}, nil
		}
		return nil, &services.TransportError{StatusCode: 429, Body: "slow down"}
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, f.engine.HandleAction(ctx, Action{Text: "Step."}), "summary failures never fail a turn")
	}

	select {
	case err := <-f.engine.SummaryErrors():
		var te *services.TransportError
		assert.True(t, errors.As(err, &te))
	case <-time.After(time.Second):
		t.Fatal("expected a summarizer error")
	}
	assert.Empty(t, mustState(t, f.engine).Summary)
}

func TestSetSummary_IgnoresOtherGames(t *testing.T) {
	f := newFixture(t, Options{})
	f.engine.setSummary(uuid.New(), "stale")
	assert.Empty(t, mustState(t, f.engine).Summary)

	id := mustState(t, f.engine).ID
	f.engine.setSummary(id, "fresh")
	assert.Equal(t, "fresh", mustState(t, f.engine).Summary)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "applying effects", PhaseApplyingEffects.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
