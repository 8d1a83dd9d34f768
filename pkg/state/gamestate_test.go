package state

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

func TestNewGameState_Defaults(t *testing.T) {
	gs := NewGameState()

	assert.Equal(t, Resources{Funds: 0, Health: 3, MaxHealth: 3, Sanity: 3, MaxSanity: 3}, gs.Resources)
	assert.Equal(t, Aspects{}, gs.Aspects)
	assert.Equal(t, "London", gs.Location)
	assert.Equal(t, "Civilian", gs.Identity)
	assert.Equal(t, "Unknown", gs.Player.Name)
	assert.Equal(t, "1905-11-02 19:00", gs.Time.String())
	assert.False(t, gs.HasActiveEvent())
	assert.Nil(t, gs.Snapshot)
	assert.Empty(t, gs.History)
}

func TestResources_ModifyClamps(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		start    int
		delta    int
		want     int
	}{
		{"health floor", ResourceHealth, 3, -100, 0},
		{"health no ceiling", ResourceHealth, 3, 100, 103},
		{"funds spend", ResourceFunds, 10, -1, 9},
		{"sanity floor", ResourceSanity, 1, -2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resources{}
			p := r.field(tt.resource)
			require.NotNil(t, p)
			*p = tt.start

			got, err := r.Modify(tt.resource, tt.delta)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("Modify(%s, %d) = %d, want %d", tt.resource, tt.delta, got, tt.want)
			}
			assert.Equal(t, tt.want, r.Get(tt.resource))
		})
	}

	r := Resources{}
	_, err := r.Modify("gold", 1)
	assert.Error(t, err)
}

func TestCounters_Saturate(t *testing.T) {
	r := Resources{Funds: math.MaxInt - 1}
	got, err := r.Modify(ResourceFunds, math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got, "a gain never wraps into a loss")

	a := Aspects{Moth: math.MinInt + 1}
	got, err = a.Add(AspectMoth, -math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, math.MinInt, got)
}

func TestAspects_AddIsUnclamped(t *testing.T) {
	var a Aspects
	v, err := a.Add(AspectWinter, -4)
	require.NoError(t, err)
	assert.Equal(t, -4, v)
	assert.Equal(t, -4, a.Winter)

	_, err = a.Add("rust", 1)
	assert.Error(t, err)
	assert.Equal(t, []int{0, 0, 0, -4, 0, 0, 0, 0}, a.Values())
}

func TestGameState_Collections(t *testing.T) {
	gs := NewGameState()

	gs.AddItem(Item{ID: "tool_knife", Name: "Knife"})
	gs.AddItem(Item{ID: "tool_knife", Name: "Sharper Knife"})
	require.Len(t, gs.Inventory, 1)
	assert.Equal(t, "Sharper Knife", gs.Inventory[0].Name)
	assert.True(t, gs.HasItem("tool_knife"))
	assert.True(t, gs.RemoveItem("tool_knife"))
	assert.False(t, gs.RemoveItem("tool_knife"))

	assert.True(t, gs.AddTag("Recruit"))
	assert.False(t, gs.AddTag("Recruit"))
	assert.Equal(t, []string{"Recruit"}, gs.Tags)

	assert.True(t, gs.AddFact(Fact{ID: "f1", Name: "A clue"}))
	assert.False(t, gs.AddFactID("f1"))
	assert.Len(t, gs.Facts, 1)

	assert.True(t, gs.MasterLore(Lore{ID: "lore_moth_1", Name: "Moth"}))
	assert.False(t, gs.MasterLoreID("lore_moth_1"))
	assert.True(t, gs.HasLore("lore_moth_1"))

	gs.CompleteEvent("e1")
	gs.SetActiveEvent("e2")
	gs.CompleteEvent("e1")
	assert.Equal(t, []string{"e1"}, gs.Story.CompletedEvents)
	assert.False(t, gs.HasActiveEvent())
}

func TestGameState_UpdateCharacter(t *testing.T) {
	gs := NewGameState()
	gs.AddCharacter(Character{ID: "morland", Name: "Morland", Relationship: "Acquaintance"})

	rel := "Friend"
	ok := gs.UpdateCharacter("morland", CharacterUpdate{Relationship: &rel, Stats: map[string]int{"moth": 2}})
	require.True(t, ok)
	assert.Equal(t, "Friend", gs.Characters[0].Relationship)
	assert.Equal(t, "Morland", gs.Characters[0].Name)
	assert.Equal(t, 2, gs.Characters[0].Stats["moth"])

	assert.False(t, gs.UpdateCharacter("nobody", CharacterUpdate{Relationship: &rel}))
}

func TestGameState_RecentHistory(t *testing.T) {
	gs := NewGameState()
	for i := 0; i < 12; i++ {
		gs.AppendHistory(chat.ChatRoleUser, string(rune('a'+i)))
	}

	recent := gs.RecentHistory(10)
	require.Len(t, recent, 10)
	assert.Equal(t, "c", recent[0].Content)
	assert.Equal(t, "l", recent[9].Content)

	recent[0].Content = "changed"
	assert.Equal(t, "c", gs.History[2].Content, "RecentHistory must return a copy")

	assert.Len(t, gs.RecentHistory(50), 12)
	assert.Nil(t, gs.RecentHistory(0))
}

func TestGameTime_Advance(t *testing.T) {
	tests := []struct {
		name    string
		start   GameTime
		minutes int
		want    string
	}{
		{"minutes only", GameTime{1905, 11, 2, 19, 0}, 30, "1905-11-02 19:30"},
		{"hour rollover", GameTime{1905, 11, 2, 19, 45}, 30, "1905-11-02 20:15"},
		{"day rollover", GameTime{1905, 11, 2, 23, 30}, 60, "1905-11-03 00:30"},
		{"month rollover", GameTime{1905, 11, 30, 23, 0}, 120, "1905-12-01 01:00"},
		{"year rollover", GameTime{1905, 12, 30, 23, 0}, 60, "1906-01-01 00:00"},
		{"negative ignored", GameTime{1905, 11, 2, 19, 0}, -30, "1905-11-02 19:00"},
		{"forty days", GameTime{1905, 11, 2, 19, 0}, 40 * 24 * 60, "1905-12-12 19:00"},
		{"two years", GameTime{1905, 11, 2, 19, 0}, 2 * 12 * 30 * 24 * 60, "1907-11-02 19:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := tt.start
			tm.Advance(tt.minutes)
			if got := tm.String(); got != tt.want {
				t.Errorf("Advance(%d) = %s, want %s", tt.minutes, got, tt.want)
			}
		})
	}
}

func TestGameTime_AdvanceHugeValues(t *testing.T) {
	for _, minutes := range []int{1 << 46, math.MaxInt} {
		tm := GameTime{1905, 11, 2, 19, 59}
		done := make(chan struct{})
		go func() {
			tm.Advance(minutes)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Advance(%d) did not return", minutes)
		}
		assert.GreaterOrEqual(t, tm.Year, 1905)
		assert.True(t, tm.Month >= 1 && tm.Month <= 12, "month %d", tm.Month)
		assert.True(t, tm.Day >= 1 && tm.Day <= 30, "day %d", tm.Day)
		assert.True(t, tm.Hour >= 0 && tm.Hour < 24, "hour %d", tm.Hour)
		assert.True(t, tm.Minute >= 0 && tm.Minute < 60, "minute %d", tm.Minute)
	}
}

func TestUpdatePacing(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		options int
		want    int
	}{
		{"single option resets", 4, 1, 0},
		{"no options increments", 4, 0, 5},
		{"several options increment", 0, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := NewGameState()
			gs.TurnsSinceLastMajorEvent = tt.start
			gs.UpdatePacing(tt.options)
			assert.Equal(t, tt.want, gs.TurnsSinceLastMajorEvent)
		})
	}
}
