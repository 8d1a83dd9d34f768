package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/story"
)

// CatalogValidator checks a story catalog for references the loader
// cannot catch: dangling event edges, unknown content ids, and events
// nothing can ever reach.
type CatalogValidator struct {
	logger *slog.Logger
	errors []string
}

func NewCatalogValidator(logger *slog.Logger) *CatalogValidator {
	return &CatalogValidator{logger: logger}
}

// ValidateFile loads filename and validates it. Duplicate ids and unknown
// trigger or effect kinds are reported by the loader itself.
func (v *CatalogValidator) ValidateFile(filename string) error {
	v.logger.Info("Validating catalog", "file", filename)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("catalog file must be .yaml, .yml or .json: %s", filepath.Base(filename))
	}

	c, err := story.LoadCatalog(filename)
	if err != nil {
		return err
	}
	return v.Validate(c)
}

// Validate runs every check and returns all problems at once.
func (v *CatalogValidator) Validate(c *story.Catalog) error {
	v.errors = nil

	for id := range c.Items {
		v.validateIDFormat("item id", id)
	}
	for id := range c.Clues {
		v.validateIDFormat("clue id", id)
	}
	for id := range c.Lores {
		v.validateIDFormat("lore id", id)
	}

	inbound := make(map[string]bool)
	for i := range c.Events {
		e := &c.Events[i]
		v.validateIDFormat("event id", e.ID)
		v.validateEffects(c, e.OnEnter, fmt.Sprintf("event %s onEnter", e.ID))
		v.validateChapter(e)

		for _, opt := range e.Options {
			v.validateIDFormat(fmt.Sprintf("option id in event %s", e.ID), opt.ID)
			v.validateEffects(c, opt.Effects, fmt.Sprintf("option %s in event %s", opt.ID, e.ID))
			if opt.Style != "" && opt.Style != state.AspectNeutral && !state.IsAspect(opt.Style) {
				v.addError(fmt.Sprintf("option %s in event %s has unknown style '%s'", opt.ID, e.ID, opt.Style))
			}
			if opt.NextEventID == "" {
				continue
			}
			if c.Event(opt.NextEventID) == nil {
				v.addError(fmt.Sprintf("option %s in event %s points to unknown event '%s'", opt.ID, e.ID, opt.NextEventID))
				continue
			}
			inbound[opt.NextEventID] = true
		}
	}

	// Empty triggers never fire, so such an event is reachable only
	// through another event's option.
	for _, e := range c.Events {
		if len(e.Triggers) == 0 && !inbound[e.ID] {
			v.addError(fmt.Sprintf("event %s has no triggers and no inbound option, so it can never fire", e.ID))
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	v.logger.Info("Catalog valid", "events", len(c.Events), "items", len(c.Items))
	return nil
}

func (v *CatalogValidator) validateEffects(c *story.Catalog, effects []state.Effect, context string) {
	for _, eff := range effects {
		switch eff := eff.(type) {
		case state.AddItem:
			if eff.Item == nil {
				if _, ok := c.ItemTemplate(eff.ItemID); !ok {
					v.addError(fmt.Sprintf("%s adds unknown item '%s'", context, eff.ItemID))
				}
			}
		case state.AddLore:
			_, isLore := c.Lore(eff.LoreID)
			_, isItem := c.ItemTemplate(eff.LoreID)
			if !isLore && !isItem {
				v.addError(fmt.Sprintf("%s adds unknown lore '%s'", context, eff.LoreID))
			}
		case state.ModifyAspect:
			if !state.IsAspect(eff.Aspect) {
				v.addError(fmt.Sprintf("%s modifies unknown aspect '%s'", context, eff.Aspect))
			}
		}
	}
}

// validateChapter flags an event tagged with one chapter but triggered
// at the start of another.
func (v *CatalogValidator) validateChapter(e *story.StoryEvent) {
	if e.ChapterID == nil {
		return
	}
	for _, t := range e.Triggers {
		if cs, ok := t.(story.ChapterStart); ok && cs.ChapterID != *e.ChapterID {
			v.addError(fmt.Sprintf("event %s is tagged chapter %d but triggers at chapter %d", e.ID, *e.ChapterID, cs.ChapterID))
		}
	}
}

func (v *CatalogValidator) validateIDFormat(fieldName, id string) {
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *CatalogValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
