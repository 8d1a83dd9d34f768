package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pale-notes/pkg/chat"
)

// Profile describes the player character.
type Profile struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"` // "male", "female", "other"
	Appearance string `json:"appearance"`
}

// Item is an inventory entry. Inventory is unique by ID.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// HasTag reports whether the item carries tag.
func (i Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

// Fact is a clue the player has learned.
type Fact struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Lore is mastered occult knowledge tied to one aspect.
type Lore struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Principle   string `json:"principle" yaml:"principle"`
	Level       int    `json:"level" yaml:"level"`
}

type Rite struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

type Language struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Script      string `json:"script,omitempty"`
}

// Character is an entry in the relationship roster.
type Character struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description" yaml:"description"`
	Relationship string         `json:"relationship" yaml:"relationship"`
	Status       string         `json:"status" yaml:"status"`
	Location     string         `json:"location,omitempty" yaml:"location,omitempty"`
	Stats        map[string]int `json:"stats" yaml:"stats,omitempty"`
}

// CharacterUpdate is a partial Character. Nil fields are left unchanged.
type CharacterUpdate struct {
	Name         *string        `json:"name,omitempty" yaml:"name,omitempty"`
	Description  *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Relationship *string        `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	Status       *string        `json:"status,omitempty" yaml:"status,omitempty"`
	Location     *string        `json:"location,omitempty" yaml:"location,omitempty"`
	Stats        map[string]int `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// LocationInfo is a place the player knows about.
type LocationInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsUnlocked  bool   `json:"isUnlocked"`
}

// StoryState tracks progress through the scripted event graph.
type StoryState struct {
	CurrentChapter  int             `json:"currentChapter"`
	CompletedEvents []string        `json:"completedEvents"`
	ActiveEventID   string          `json:"activeEventId,omitempty"` // empty when no event is active
	Flags           map[string]bool `json:"flags"`
	Origin          string          `json:"origin,omitempty"`
	Childhood       string          `json:"childhood,omitempty"`
	UniqueTrait     string          `json:"uniqueTrait,omitempty"`
}

// IsCompleted reports whether the event id is in CompletedEvents.
func (s StoryState) IsCompleted(id string) bool {
	return slices.Contains(s.CompletedEvents, id)
}

// GameState is the full mutable world of a play session.
type GameState struct {
	ID        uuid.UUID `json:"id"`
	Player    Profile   `json:"player"`
	Resources Resources `json:"resources"`
	Aspects   Aspects   `json:"aspects"`

	Inventory     []Item         `json:"inventory"`
	Lores         []Lore         `json:"lores"`
	Rites         []Rite         `json:"rites"`
	Languages     []Language     `json:"languages"`
	Characters    []Character    `json:"characters"`
	Locations     []LocationInfo `json:"locations"`
	UnlockedDoors []string       `json:"unlockedDoors"`
	Tags          []string       `json:"tags"`
	KnownFacts    []string       `json:"knownFacts"`
	Facts         []Fact         `json:"facts"`
	ReadBooks     []string       `json:"readBooks"`
	MasteredLores []string       `json:"masteredLores"`

	Location string   `json:"location"`
	Time     GameTime `json:"time"`
	Identity string   `json:"identity"`

	Story                    StoryState `json:"story"`
	TurnsSinceLastMajorEvent int        `json:"turnsSinceLastMajorEvent"`

	History        []chat.ChatMessage `json:"history"`
	Summary        string             `json:"summary"`
	CurrentOptions []Option           `json:"currentOptions"`

	// Started is a session flag and is never persisted, so a reload lands on the menu.
	Started bool `json:"-"`
	// Snapshot is the single rollback slot.
	Snapshot *GameState `json:"-"`
}

// NewGameState returns the initial state of a new game.
func NewGameState() *GameState {
	return &GameState{
		ID: uuid.New(),
		Player: Profile{
			Name:       "Unknown",
			Gender:     "other",
			Appearance: "A figure shrouded in mist.",
		},
		Resources: Resources{
			Funds:     0,
			Health:    3,
			MaxHealth: 3,
			Sanity:    3,
			MaxSanity: 3,
		},
		Inventory:      make([]Item, 0),
		Lores:          make([]Lore, 0),
		Rites:          make([]Rite, 0),
		Languages:      make([]Language, 0),
		Characters:     make([]Character, 0),
		Locations:      make([]LocationInfo, 0),
		UnlockedDoors:  make([]string, 0),
		Tags:           make([]string, 0),
		KnownFacts:     make([]string, 0),
		Facts:          make([]Fact, 0),
		ReadBooks:      make([]string, 0),
		MasteredLores:  make([]string, 0),
		Location:       "London",
		Time:           GameTime{Year: 1905, Month: 11, Day: 2, Hour: 19, Minute: 0},
		Identity:       "Civilian",
		Story:          StoryState{CompletedEvents: make([]string, 0), Flags: make(map[string]bool)},
		History:        make([]chat.ChatMessage, 0),
		CurrentOptions: make([]Option, 0),
	}
}

// AppendHistory adds a role-tagged entry to the narrative history.
func (gs *GameState) AppendHistory(role, content string) {
	gs.History = append(gs.History, chat.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
}

// RecentHistory returns a copy of the last n history entries.
func (gs *GameState) RecentHistory(n int) []chat.ChatMessage {
	if n <= 0 || len(gs.History) == 0 {
		return nil
	}
	start := max(0, len(gs.History)-n)
	return slices.Clone(gs.History[start:])
}

// AddItem inserts item, replacing any existing item with the same ID.
func (gs *GameState) AddItem(item Item) {
	for i := range gs.Inventory {
		if gs.Inventory[i].ID == item.ID {
			gs.Inventory[i] = item
			return
		}
	}
	gs.Inventory = append(gs.Inventory, item)
}

// RemoveItem drops the item with id. It reports whether anything was removed.
func (gs *GameState) RemoveItem(id string) bool {
	n := len(gs.Inventory)
	gs.Inventory = slices.DeleteFunc(gs.Inventory, func(i Item) bool { return i.ID == id })
	return len(gs.Inventory) != n
}

func (gs *GameState) HasItem(id string) bool {
	return slices.ContainsFunc(gs.Inventory, func(i Item) bool { return i.ID == id })
}

// AddTag adds tag unless already present.
func (gs *GameState) AddTag(tag string) bool {
	if tag == "" || slices.Contains(gs.Tags, tag) {
		return false
	}
	gs.Tags = append(gs.Tags, tag)
	return true
}

func (gs *GameState) HasTag(tag string) bool {
	return slices.Contains(gs.Tags, tag)
}

// AddFactID records a fact by id only.
func (gs *GameState) AddFactID(id string) bool {
	if id == "" || slices.Contains(gs.KnownFacts, id) {
		return false
	}
	gs.KnownFacts = append(gs.KnownFacts, id)
	return true
}

// AddFact records a fact with its full descriptor. Known ids are ignored.
func (gs *GameState) AddFact(f Fact) bool {
	if !gs.AddFactID(f.ID) {
		return false
	}
	gs.Facts = append(gs.Facts, f)
	return true
}

func (gs *GameState) HasFact(id string) bool {
	return slices.Contains(gs.KnownFacts, id)
}

func (gs *GameState) MarkBookRead(id string) bool {
	if id == "" || slices.Contains(gs.ReadBooks, id) {
		return false
	}
	gs.ReadBooks = append(gs.ReadBooks, id)
	return true
}

// MasterLoreID records a lore id without a descriptor.
func (gs *GameState) MasterLoreID(id string) bool {
	if id == "" || slices.Contains(gs.MasteredLores, id) {
		return false
	}
	gs.MasteredLores = append(gs.MasteredLores, id)
	return true
}

// MasterLore records a lore with its descriptor. Mastered ids are ignored.
func (gs *GameState) MasterLore(l Lore) bool {
	if !gs.MasterLoreID(l.ID) {
		return false
	}
	gs.Lores = append(gs.Lores, l)
	return true
}

func (gs *GameState) HasLore(id string) bool {
	return slices.Contains(gs.MasteredLores, id)
}

func (gs *GameState) AddRite(r Rite) {
	for i := range gs.Rites {
		if gs.Rites[i].ID == r.ID {
			gs.Rites[i] = r
			return
		}
	}
	gs.Rites = append(gs.Rites, r)
}

func (gs *GameState) AddLanguage(l Language) {
	for i := range gs.Languages {
		if gs.Languages[i].ID == l.ID {
			gs.Languages[i] = l
			return
		}
	}
	gs.Languages = append(gs.Languages, l)
}

// AddCharacter inserts c, replacing an existing character with the same ID.
func (gs *GameState) AddCharacter(c Character) {
	for i := range gs.Characters {
		if gs.Characters[i].ID == c.ID {
			gs.Characters[i] = c
			return
		}
	}
	gs.Characters = append(gs.Characters, c)
}

// UpdateCharacter merges u into the character with id.
// It reports false if no such character exists.
func (gs *GameState) UpdateCharacter(id string, u CharacterUpdate) bool {
	for i := range gs.Characters {
		c := &gs.Characters[i]
		if c.ID != id {
			continue
		}
		if u.Name != nil {
			c.Name = *u.Name
		}
		if u.Description != nil {
			c.Description = *u.Description
		}
		if u.Relationship != nil {
			c.Relationship = *u.Relationship
		}
		if u.Status != nil {
			c.Status = *u.Status
		}
		if u.Location != nil {
			c.Location = *u.Location
		}
		if len(u.Stats) > 0 {
			if c.Stats == nil {
				c.Stats = make(map[string]int, len(u.Stats))
			}
			for k, v := range u.Stats {
				c.Stats[k] = v
			}
		}
		return true
	}
	return false
}

// UpsertLocation merges loc into the known locations list.
func (gs *GameState) UpsertLocation(loc LocationInfo) {
	for i := range gs.Locations {
		if gs.Locations[i].ID != loc.ID {
			continue
		}
		cur := &gs.Locations[i]
		if loc.Name != "" {
			cur.Name = loc.Name
		}
		if loc.Description != "" {
			cur.Description = loc.Description
		}
		cur.IsUnlocked = cur.IsUnlocked || loc.IsUnlocked
		return
	}
	gs.Locations = append(gs.Locations, loc)
}

// SetActiveEvent marks id as the single active scripted event.
func (gs *GameState) SetActiveEvent(id string) {
	gs.Story.ActiveEventID = id
}

func (gs *GameState) ClearActiveEvent() {
	gs.Story.ActiveEventID = ""
}

func (gs *GameState) HasActiveEvent() bool {
	return gs.Story.ActiveEventID != ""
}

// CompleteEvent records id as completed and clears the active event.
func (gs *GameState) CompleteEvent(id string) {
	if !slices.Contains(gs.Story.CompletedEvents, id) {
		gs.Story.CompletedEvents = append(gs.Story.CompletedEvents, id)
	}
	gs.Story.ActiveEventID = ""
}
