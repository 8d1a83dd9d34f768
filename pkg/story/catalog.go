package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/pale-notes/pkg/state"
)

// Catalog holds the read-only content tables: items, clues, lores and the
// ordered event list. It implements state.Catalog.
type Catalog struct {
	Events []StoryEvent
	Items  map[string]state.Item
	Clues  map[string]state.Fact
	Lores  map[string]state.Lore

	index map[string]int
}

var _ state.Catalog = (*Catalog)(nil)

type rawCatalog struct {
	Items  []state.Item `json:"items"`
	Clues  []state.Fact `json:"clues"`
	Lores  []rawLore    `json:"lores"`
	Events []rawEvent   `json:"events"`
}

type rawLore struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Aspect      string `json:"aspect"`
	Level       int    `json:"level"`
}

type rawEvent struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Text           string            `json:"text"`
	IsStatic       bool              `json:"isStatic"`
	Options        []rawOption       `json:"options"`
	Triggers       []json.RawMessage `json:"triggers"`
	OnEnter        []json.RawMessage `json:"onEnter"`
	ChapterID      *int              `json:"chapterId"`
	PrincipleGuide string            `json:"principleGuide"`
}

type rawOption struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	Style       string            `json:"style"`
	Requires    []json.RawMessage `json:"requires"`
	Effects     []json.RawMessage `json:"effects"`
	NextEventID string            `json:"nextEventId"`
}

// Format is the encoding of a catalog file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// LoadCatalog reads a catalog file. The format follows the extension.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	c, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes catalog data. YAML is normalised to JSON first so
// both formats share one decoding path.
func ParseCatalog(data []byte, format Format) (*Catalog, error) {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml: %w", err)
		}
		data = converted
	}

	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return buildCatalog(raw)
}

func buildCatalog(raw rawCatalog) (*Catalog, error) {
	c := &Catalog{
		Events: make([]StoryEvent, 0, len(raw.Events)),
		Items:  make(map[string]state.Item, len(raw.Items)),
		Clues:  make(map[string]state.Fact, len(raw.Clues)),
		Lores:  make(map[string]state.Lore, len(raw.Lores)),
		index:  make(map[string]int, len(raw.Events)),
	}

	for _, it := range raw.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("item without id")
		}
		if _, dup := c.Items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		c.Items[it.ID] = it
	}
	for _, f := range raw.Clues {
		if _, dup := c.Clues[f.ID]; dup {
			return nil, fmt.Errorf("duplicate clue id %q", f.ID)
		}
		c.Clues[f.ID] = f
	}
	for _, l := range raw.Lores {
		if _, dup := c.Lores[l.ID]; dup {
			return nil, fmt.Errorf("duplicate lore id %q", l.ID)
		}
		level := l.Level
		if level == 0 {
			level = 1
		}
		principle := l.Aspect
		if principle == "" {
			principle = state.AspectNeutral
		}
		c.Lores[l.ID] = state.Lore{ID: l.ID, Name: l.Name, Description: l.Description, Principle: principle, Level: level}
	}

	for _, re := range raw.Events {
		if re.ID == "" {
			return nil, fmt.Errorf("event without id")
		}
		if _, dup := c.index[re.ID]; dup {
			return nil, fmt.Errorf("duplicate event id %q", re.ID)
		}
		e, err := decodeEvent(re)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", re.ID, err)
		}
		c.index[e.ID] = len(c.Events)
		c.Events = append(c.Events, e)
	}
	return c, nil
}

func decodeEvent(re rawEvent) (StoryEvent, error) {
	e := StoryEvent{
		ID:             re.ID,
		Title:          re.Title,
		Text:           re.Text,
		IsStatic:       re.IsStatic,
		ChapterID:      re.ChapterID,
		PrincipleGuide: re.PrincipleGuide,
	}

	var err error
	if e.Triggers, err = decodeTriggers(re.Triggers); err != nil {
		return e, fmt.Errorf("triggers: %w", err)
	}
	if e.OnEnter, err = decodeEffects(re.OnEnter); err != nil {
		return e, fmt.Errorf("onEnter: %w", err)
	}

	seen := make(map[string]bool, len(re.Options))
	for _, ro := range re.Options {
		if ro.ID == "" {
			return e, fmt.Errorf("option without id")
		}
		if seen[ro.ID] {
			return e, fmt.Errorf("duplicate option id %q", ro.ID)
		}
		seen[ro.ID] = true

		opt := StoryOption{ID: ro.ID, Text: ro.Text, Style: ro.Style, NextEventID: ro.NextEventID}
		if opt.Requires, err = decodeTriggers(ro.Requires); err != nil {
			return e, fmt.Errorf("option %q requires: %w", ro.ID, err)
		}
		if opt.Effects, err = decodeEffects(ro.Effects); err != nil {
			return e, fmt.Errorf("option %q effects: %w", ro.ID, err)
		}
		e.Options = append(e.Options, opt)
	}
	return e, nil
}

func decodeTriggers(raws []json.RawMessage) ([]Trigger, error) {
	out := make([]Trigger, 0, len(raws))
	for i, raw := range raws {
		t, err := DecodeTrigger(raw)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Scripted effects are authored content, so any decoding failure is fatal
// at load time rather than skipped.
func decodeEffects(raws []json.RawMessage) ([]state.Effect, error) {
	effects, errs := state.DecodeEffects(raws)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return effects, nil
}

// Event returns the event with id.
func (c *Catalog) Event(id string) *StoryEvent {
	i, ok := c.index[id]
	if !ok {
		return nil
	}
	return &c.Events[i]
}

// SelectEvent applies the rule engine to the catalog's event list.
func (c *Catalog) SelectEvent(v GameStateView) *StoryEvent {
	return SelectEvent(c.Events, v)
}

// ItemTemplate returns the catalog item with id.
func (c *Catalog) ItemTemplate(id string) (state.Item, bool) {
	it, ok := c.Items[id]
	if ok {
		it.Tags = slices.Clone(it.Tags)
	}
	return it, ok
}

// Clue returns the clue descriptor with id.
func (c *Catalog) Clue(id string) (state.Fact, bool) {
	f, ok := c.Clues[id]
	return f, ok
}

// Lore returns the lore descriptor with id.
func (c *Catalog) Lore(id string) (state.Lore, bool) {
	l, ok := c.Lores[id]
	return l, ok
}

// Titles maps event ids to their display titles, skipping unknown ids.
func (c *Catalog) Titles(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if e := c.Event(id); e != nil {
			out = append(out, e.DisplayTitle())
		}
	}
	return out
}
