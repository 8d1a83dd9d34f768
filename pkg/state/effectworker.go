package state

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/pale-notes/pkg/chat"
)

// ChangeLogHeader prefixes the system history entry written by Flush.
const ChangeLogHeader = "> **State changes**:"

// Catalog resolves static content referenced by id.
type Catalog interface {
	ItemTemplate(id string) (Item, bool)
	Clue(id string) (Fact, bool)
	Lore(id string) (Lore, bool)
}

// ProgressLedger is the cross-session record updated on milestones.
type ProgressLedger interface {
	MarkOriginComplete(origin string) bool
	UpdateMaxChapter(chapter int)
	AddKeyEvent(eventID string) bool
}

// UnknownReferenceError reports an id missing from its catalog. It is
// recovered by synthesising a placeholder and never fails a turn.
type UnknownReferenceError struct {
	Kind string
	ID   string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown %s reference %q", e.Kind, e.ID)
}

// EffectWorker applies effects to a game state and collects one summary
// line per applied effect. Lines accumulate across Apply calls until Flush.
type EffectWorker struct {
	gs      *GameState
	catalog Catalog
	ledger  ProgressLedger
	logger  *slog.Logger
	lines   []string
}

// NewEffectWorker creates a worker for gs.
func NewEffectWorker(gs *GameState, logger *slog.Logger) *EffectWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EffectWorker{gs: gs, logger: logger}
}

// WithCatalog sets the lookup used for item, clue and lore ids.
func (w *EffectWorker) WithCatalog(c Catalog) *EffectWorker {
	w.catalog = c
	return w
}

// WithLedger sets the progress ledger notified on chapter changes.
func (w *EffectWorker) WithLedger(l ProgressLedger) *EffectWorker {
	w.ledger = l
	return w
}

// Lines returns the summary lines collected so far.
func (w *EffectWorker) Lines() []string {
	return append([]string(nil), w.lines...)
}

// ApplyAll applies effects in order. A failing effect is logged and skipped.
func (w *EffectWorker) ApplyAll(effects []Effect) {
	for _, e := range effects {
		if err := w.Apply(e); err != nil {
			w.logger.Warn("Skipping effect", "kind", e.Kind(), "error", err)
		}
	}
}

// Apply mutates the state for a single effect.
func (w *EffectWorker) Apply(e Effect) error {
	gs := w.gs
	switch e := e.(type) {
	case SetOrigin:
		gs.Story.Origin = e.Origin
		w.addLine("Origin: %s", e.Origin)
	case ModifyResource:
		if _, err := gs.Resources.Modify(e.Resource, e.Delta); err != nil {
			return err
		}
		w.addLine("%s %s", e.Resource, signed(e.Delta))
	case ModifyAspect:
		if _, err := gs.Aspects.Add(e.Aspect, e.Delta); err != nil {
			return err
		}
		w.addLine("Aspect: %s %s", e.Aspect, signed(e.Delta))
	case UnlockLocation:
		if e.Location == "" {
			return fmt.Errorf("empty location")
		}
		gs.Location = e.Location
		gs.UpsertLocation(LocationInfo{ID: e.Location, Name: e.Location, IsUnlocked: true})
		w.addLine("Location unlocked: %s", e.Location)
	case AddTag:
		if e.Tag == "" {
			return fmt.Errorf("empty tag")
		}
		gs.AddTag(e.Tag)
		w.addLine("Tag: %s", e.Tag)
	case AddFact:
		f := w.resolveFact(e)
		gs.AddFact(f)
		w.addLine("Clue gained: %s", f.Name)
	case AddItem:
		item := w.resolveItem(e)
		gs.AddItem(item)
		w.addLine("Item gained: %s", item.Name)
	case RemoveItem:
		name := e.ItemID
		for _, it := range gs.Inventory {
			if it.ID == e.ItemID && it.Name != "" {
				name = it.Name
			}
		}
		gs.RemoveItem(e.ItemID)
		w.addLine("Item lost: %s", name)
	case ChapterComplete:
		w.setChapter(e.Chapter + 1)
	case SetChapter:
		w.setChapter(e.Chapter)
	case SetIdentity:
		gs.Identity = e.Identity
		w.addLine("Identity: %s", e.Identity)
	case AddCharacter:
		gs.AddCharacter(e.Character)
		w.addLine("Met: %s", displayName(e.Character.Name, e.Character.ID))
	case UpdateCharacter:
		if !gs.UpdateCharacter(e.ID, e.Updates) {
			return &UnknownReferenceError{Kind: "character", ID: e.ID}
		}
		w.addLine("Character updated: %s", e.ID)
	case AddRite:
		gs.AddRite(e.Rite)
		w.addLine("Rite learned: %s", displayName(e.Rite.Name, e.Rite.ID))
	case AddLore:
		l := w.resolveLore(e.LoreID, nil)
		gs.MasterLore(l)
		w.addLine("Lore mastered: %s", l.Name)
	case AddLanguage:
		gs.AddLanguage(e.Language)
		w.addLine("Language learned: %s", displayName(e.Language.Name, e.Language.ID))
	case AddLocation:
		gs.UpsertLocation(e.Location)
		w.addLine("Location noted: %s", displayName(e.Location.Name, e.Location.ID))
	case MarkBookRead:
		gs.MarkBookRead(e.BookID)
		name := e.BookID
		if w.catalog != nil {
			if it, ok := w.catalog.ItemTemplate(e.BookID); ok {
				name = it.Name
			}
		}
		w.addLine("Book read: %s", name)
	case MarkLoreMastered:
		l := w.resolveLore(e.LoreID, e.Lore)
		gs.MasterLore(l)
		w.addLine("Lore mastered: %s", l.Name)
	case ModifyTime:
		if e.Minutes <= 0 {
			return nil
		}
		gs.Time.Advance(e.Minutes)
		w.addLine("Time: +%d min", e.Minutes)
	default:
		return fmt.Errorf("unhandled effect kind %s", e.Kind())
	}
	return nil
}

// Flush records the collected lines as one system history entry and
// resets the log. It reports whether an entry was written.
func (w *EffectWorker) Flush() bool {
	if len(w.lines) == 0 {
		return false
	}
	w.gs.AppendHistory(chat.ChatRoleSystem, ChangeLogHeader+" \n"+strings.Join(w.lines, "\n"))
	w.lines = nil
	return true
}

func (w *EffectWorker) setChapter(next int) {
	prev := w.gs.Story.CurrentChapter
	w.gs.Story.CurrentChapter = next
	if w.ledger != nil {
		w.ledger.UpdateMaxChapter(next)
	}
	if prev == 0 && next == 1 && w.gs.Story.Origin != "" {
		if w.ledger != nil {
			w.ledger.MarkOriginComplete(w.gs.Story.Origin)
		}
		w.addLine("Chapter %d begins (prologue complete: %s)", next, w.gs.Story.Origin)
		return
	}
	w.addLine("Chapter %d begins", next)
}

func (w *EffectWorker) resolveItem(e AddItem) Item {
	if e.Item != nil {
		it := *e.Item
		if it.Name == "" {
			it.Name = titleFromID(it.ID)
		}
		return it
	}
	if w.catalog != nil {
		if it, ok := w.catalog.ItemTemplate(e.ItemID); ok {
			return it
		}
	}
	w.unknown("item", e.ItemID)
	return PlaceholderItem(e.ItemID)
}

func (w *EffectWorker) resolveFact(e AddFact) Fact {
	if e.Fact != nil {
		f := *e.Fact
		if f.Name == "" {
			f.Name = f.ID
		}
		return f
	}
	if w.catalog != nil {
		if f, ok := w.catalog.Clue(e.FactID); ok {
			return f
		}
	}
	return Fact{ID: e.FactID, Name: e.FactID}
}

func (w *EffectWorker) resolveLore(id string, given *Lore) Lore {
	if given != nil {
		l := *given
		if l.Name == "" {
			l.Name = titleFromID(l.ID)
		}
		return l
	}
	if w.catalog != nil {
		if l, ok := w.catalog.Lore(id); ok {
			return l
		}
		if it, ok := w.catalog.ItemTemplate(id); ok {
			return LoreFromItem(it)
		}
	}
	w.unknown("lore", id)
	return Lore{
		ID:          id,
		Name:        titleFromID(id),
		Description: placeholderDescription,
		Principle:   AspectNeutral,
		Level:       1,
	}
}

func (w *EffectWorker) unknown(kind, id string) {
	w.logger.Warn("Using placeholder for unknown reference", "error", &UnknownReferenceError{Kind: kind, ID: id})
}

func (w *EffectWorker) addLine(format string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

const placeholderDescription = "An unfamiliar thing. It gives off a faint, uncertain presence."

// PlaceholderItem synthesises an item for an id missing from the catalog.
func PlaceholderItem(id string) Item {
	return Item{
		ID:          id,
		Name:        titleFromID(id),
		Description: placeholderDescription,
		Tags:        []string{"unknown"},
	}
}

// LoreFromItem converts an item template into a lore. The principle is the
// first aspect tag and the level comes from a level_N tag.
func LoreFromItem(it Item) Lore {
	l := Lore{ID: it.ID, Name: it.Name, Description: it.Description, Principle: AspectNeutral, Level: 1}
	for _, tag := range it.Tags {
		if IsAspect(tag) {
			l.Principle = tag
			break
		}
	}
	for _, tag := range it.Tags {
		if n, ok := strings.CutPrefix(tag, "level_"); ok {
			if v, err := strconv.Atoi(n); err == nil {
				l.Level = v
			}
			break
		}
	}
	return l
}

func titleFromID(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
