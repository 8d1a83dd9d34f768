package state

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

type fakeCatalog struct {
	items map[string]Item
	clues map[string]Fact
	lores map[string]Lore
}

func (c fakeCatalog) ItemTemplate(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c fakeCatalog) Clue(id string) (Fact, bool) {
	f, ok := c.clues[id]
	return f, ok
}

func (c fakeCatalog) Lore(id string) (Lore, bool) {
	l, ok := c.lores[id]
	return l, ok
}

type fakeLedger struct {
	origins    []string
	maxChapter int
	events     []string
}

func (l *fakeLedger) MarkOriginComplete(origin string) bool {
	l.origins = append(l.origins, origin)
	return true
}
func (l *fakeLedger) UpdateMaxChapter(chapter int) { l.maxChapter = max(l.maxChapter, chapter) }
func (l *fakeLedger) AddKeyEvent(id string) bool {
	l.events = append(l.events, id)
	return true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		items: map[string]Item{
			"tool_knife":  {ID: "tool_knife", Name: "Rusted Scalpel", Tags: []string{"tool", "edge"}},
			"lore_moth_1": {ID: "lore_moth_1", Name: "Moth Whispers", Tags: []string{"lore", "moth", "level_2"}},
		},
		clues: map[string]Fact{
			"faceless": {ID: "faceless", Name: "Saw the faceless one"},
		},
		lores: map[string]Lore{},
	}
}

func TestEffectWorker_ResourceLineAndHistoryEntry(t *testing.T) {
	gs := NewGameState()
	gs.Resources.Funds = 10

	w := NewEffectWorker(gs, testLogger())
	require.NoError(t, w.Apply(ModifyResource{Resource: ResourceFunds, Delta: -1}))
	assert.Equal(t, 9, gs.Resources.Funds)

	require.True(t, w.Flush())
	require.Len(t, gs.History, 1)
	assert.Equal(t, chat.ChatRoleSystem, gs.History[0].Role)
	assert.Contains(t, gs.History[0].Content, "funds -1")
	assert.True(t, strings.HasPrefix(gs.History[0].Content, ChangeLogHeader))

	assert.False(t, w.Flush(), "nothing left to flush")
	assert.Len(t, gs.History, 1)
}

func TestEffectWorker_Apply(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(gs *GameState)
		effect Effect
		check  func(t *testing.T, gs *GameState)
		line   string
	}{
		{
			name:   "positive resource delta is signed",
			effect: ModifyResource{Resource: ResourceFunds, Delta: 5},
			check:  func(t *testing.T, gs *GameState) { assert.Equal(t, 5, gs.Resources.Funds) },
			line:   "funds +5",
		},
		{
			name:   "health floor",
			effect: ModifyResource{Resource: ResourceHealth, Delta: -100},
			check:  func(t *testing.T, gs *GameState) { assert.Equal(t, 0, gs.Resources.Health) },
			line:   "health -100",
		},
		{
			name:   "aspect can go negative",
			effect: ModifyAspect{Aspect: AspectHeart, Delta: -2},
			check:  func(t *testing.T, gs *GameState) { assert.Equal(t, -2, gs.Aspects.Heart) },
			line:   "Aspect: heart -2",
		},
		{
			name:   "catalog item",
			effect: AddItem{ItemID: "tool_knife"},
			check: func(t *testing.T, gs *GameState) {
				require.Len(t, gs.Inventory, 1)
				assert.Equal(t, "Rusted Scalpel", gs.Inventory[0].Name)
			},
			line: "Item gained: Rusted Scalpel",
		},
		{
			name:   "unknown item becomes placeholder",
			effect: AddItem{ItemID: "skin_of_night"},
			check: func(t *testing.T, gs *GameState) {
				require.Len(t, gs.Inventory, 1)
				it := gs.Inventory[0]
				assert.Equal(t, "Skin Of Night", it.Name)
				assert.Equal(t, []string{"unknown"}, it.Tags)
				assert.NotEmpty(t, it.Description)
			},
			line: "Item gained: Skin Of Night",
		},
		{
			name:   "remove item uses its name",
			setup:  func(gs *GameState) { gs.AddItem(Item{ID: "curio_watch", Name: "Stopped Watch"}) },
			effect: RemoveItem{ItemID: "curio_watch"},
			check:  func(t *testing.T, gs *GameState) { assert.Empty(t, gs.Inventory) },
			line:   "Item lost: Stopped Watch",
		},
		{
			name:   "clue from catalog",
			effect: AddFact{FactID: "faceless"},
			check:  func(t *testing.T, gs *GameState) { assert.True(t, gs.HasFact("faceless")) },
			line:   "Clue gained: Saw the faceless one",
		},
		{
			name:   "lore from item template",
			effect: AddLore{LoreID: "lore_moth_1"},
			check: func(t *testing.T, gs *GameState) {
				require.Len(t, gs.Lores, 1)
				assert.Equal(t, AspectMoth, gs.Lores[0].Principle)
				assert.Equal(t, 2, gs.Lores[0].Level)
			},
			line: "Lore mastered: Moth Whispers",
		},
		{
			name:   "unknown lore becomes placeholder",
			effect: MarkLoreMastered{LoreID: "lore_void_3"},
			check: func(t *testing.T, gs *GameState) {
				require.Len(t, gs.Lores, 1)
				assert.Equal(t, AspectNeutral, gs.Lores[0].Principle)
			},
			line: "Lore mastered: Lore Void 3",
		},
		{
			name:   "unlock location moves the player",
			effect: UnlockLocation{Location: "The Bookshop"},
			check: func(t *testing.T, gs *GameState) {
				assert.Equal(t, "The Bookshop", gs.Location)
				require.Len(t, gs.Locations, 1)
				assert.True(t, gs.Locations[0].IsUnlocked)
			},
			line: "Location unlocked: The Bookshop",
		},
		{
			name:   "time",
			effect: ModifyTime{Minutes: 45},
			check:  func(t *testing.T, gs *GameState) { assert.Equal(t, "1905-11-02 19:45", gs.Time.String()) },
			line:   "Time: +45 min",
		},
		{
			name:   "chapter complete advances",
			setup:  func(gs *GameState) { gs.Story.CurrentChapter = 1 },
			effect: ChapterComplete{Chapter: 1},
			check:  func(t *testing.T, gs *GameState) { assert.Equal(t, 2, gs.Story.CurrentChapter) },
			line:   "Chapter 2 begins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := NewGameState()
			if tt.setup != nil {
				tt.setup(gs)
			}
			w := NewEffectWorker(gs, testLogger()).WithCatalog(testCatalog())
			require.NoError(t, w.Apply(tt.effect))
			tt.check(t, gs)
			assert.Equal(t, []string{tt.line}, w.Lines())
		})
	}
}

func TestEffectWorker_PrologueBoundaryMarksOrigin(t *testing.T) {
	gs := NewGameState()
	gs.Story.Origin = "detective"
	ledger := &fakeLedger{}

	w := NewEffectWorker(gs, testLogger()).WithLedger(ledger)
	require.NoError(t, w.Apply(SetChapter{Chapter: 1}))

	assert.Equal(t, 1, gs.Story.CurrentChapter)
	assert.Equal(t, []string{"detective"}, ledger.origins)
	assert.Equal(t, 1, ledger.maxChapter)
	assert.Contains(t, w.Lines()[0], "prologue complete: detective")

	require.NoError(t, w.Apply(SetChapter{Chapter: 2}))
	assert.Len(t, ledger.origins, 1, "only the prologue boundary marks the origin")
	assert.Equal(t, 2, ledger.maxChapter)
}

func TestEffectWorker_ApplyAllSkipsInvalid(t *testing.T) {
	gs := NewGameState()
	w := NewEffectWorker(gs, testLogger())

	w.ApplyAll([]Effect{
		ModifyResource{Resource: "gold", Delta: 3},
		UpdateCharacter{ID: "ghost"},
		AddTag{Tag: "Recruit"},
	})

	assert.Equal(t, []string{"Recruit"}, gs.Tags)
	assert.Equal(t, []string{"Tag: Recruit"}, w.Lines())
}
