package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Effect kinds as they appear on the wire.
const (
	KindSetOrigin        = "SET_ORIGIN"
	KindModifyResource   = "MODIFY_RESOURCE"
	KindModifyAspect     = "MODIFY_ASPECT"
	KindUnlockLocation   = "UNLOCK_LOCATION"
	KindAddTag           = "ADD_TAG"
	KindAddFact          = "ADD_FACT"
	KindAddItem          = "ADD_ITEM"
	KindRemoveItem       = "REMOVE_ITEM"
	KindChapterComplete  = "CHAPTER_COMPLETE"
	KindSetChapter       = "SET_CHAPTER"
	KindSetIdentity      = "SET_IDENTITY"
	KindAddCharacter     = "ADD_CHARACTER"
	KindUpdateCharacter  = "UPDATE_CHARACTER"
	KindAddRite          = "ADD_RITE"
	KindAddLore          = "ADD_LORE"
	KindAddLanguage      = "ADD_LANGUAGE"
	KindAddLocation      = "ADD_LOCATION"
	KindMarkBookRead     = "MARK_BOOK_READ"
	KindMarkLoreMastered = "MARK_LORE_MASTERED"
	KindModifyTime       = "MODIFY_TIME"
)

// Effect is one atomic, typed state mutation. The set of implementations
// is closed; EffectWorker.Apply switches over all of them.
type Effect interface {
	Kind() string
	effect()
}

type SetOrigin struct{ Origin string }
type ModifyResource struct {
	Resource string
	Delta    int
}
type ModifyAspect struct {
	Aspect string
	Delta  int
}
type UnlockLocation struct{ Location string }
type AddTag struct{ Tag string }

// AddFact records a clue. Fact is nil when only the id is known.
type AddFact struct {
	FactID string
	Fact   *Fact
}

// AddItem grants an item. Item is nil when it must be resolved from the catalog.
type AddItem struct {
	ItemID string
	Item   *Item
}
type RemoveItem struct{ ItemID string }

// ChapterComplete finishes Chapter and moves to the next one.
type ChapterComplete struct{ Chapter int }
type SetChapter struct{ Chapter int }
type SetIdentity struct{ Identity string }
type AddCharacter struct{ Character Character }
type UpdateCharacter struct {
	ID      string
	Updates CharacterUpdate
}
type AddRite struct{ Rite Rite }

// AddLore masters a lore resolved from the item catalog.
type AddLore struct{ LoreID string }
type AddLanguage struct{ Language Language }
type AddLocation struct{ Location LocationInfo }
type MarkBookRead struct{ BookID string }

// MarkLoreMastered masters a lore by id, with an optional descriptor.
type MarkLoreMastered struct {
	LoreID string
	Lore   *Lore
}
type ModifyTime struct{ Minutes int }

func (SetOrigin) Kind() string        { return KindSetOrigin }
func (ModifyResource) Kind() string   { return KindModifyResource }
func (ModifyAspect) Kind() string     { return KindModifyAspect }
func (UnlockLocation) Kind() string   { return KindUnlockLocation }
func (AddTag) Kind() string           { return KindAddTag }
func (AddFact) Kind() string          { return KindAddFact }
func (AddItem) Kind() string          { return KindAddItem }
func (RemoveItem) Kind() string       { return KindRemoveItem }
func (ChapterComplete) Kind() string  { return KindChapterComplete }
func (SetChapter) Kind() string       { return KindSetChapter }
func (SetIdentity) Kind() string      { return KindSetIdentity }
func (AddCharacter) Kind() string     { return KindAddCharacter }
func (UpdateCharacter) Kind() string  { return KindUpdateCharacter }
func (AddRite) Kind() string          { return KindAddRite }
func (AddLore) Kind() string          { return KindAddLore }
func (AddLanguage) Kind() string      { return KindAddLanguage }
func (AddLocation) Kind() string      { return KindAddLocation }
func (MarkBookRead) Kind() string     { return KindMarkBookRead }
func (MarkLoreMastered) Kind() string { return KindMarkLoreMastered }
func (ModifyTime) Kind() string       { return KindModifyTime }

func (SetOrigin) effect()        {}
func (ModifyResource) effect()   {}
func (ModifyAspect) effect()     {}
func (UnlockLocation) effect()   {}
func (AddTag) effect()           {}
func (AddFact) effect()          {}
func (AddItem) effect()          {}
func (RemoveItem) effect()       {}
func (ChapterComplete) effect()  {}
func (SetChapter) effect()       {}
func (SetIdentity) effect()      {}
func (AddCharacter) effect()     {}
func (UpdateCharacter) effect()  {}
func (AddRite) effect()          {}
func (AddLore) effect()          {}
func (AddLanguage) effect()      {}
func (AddLocation) effect()      {}
func (MarkBookRead) effect()     {}
func (MarkLoreMastered) effect() {}
func (ModifyTime) effect()       {}

// UnknownEffectError is returned for a wire effect whose type is not a known kind.
type UnknownEffectError struct {
	Type string
}

func (e *UnknownEffectError) Error() string {
	return fmt.Sprintf("unknown effect type %q", e.Type)
}

// wireEffect covers both shapes in use: scripted effects carry
// {type, value[, target]}, analysis output carries {type, target, value, payload}.
type wireEffect struct {
	Type    string          `json:"type"`
	Target  json.RawMessage `json:"target"`
	Value   json.RawMessage `json:"value"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEffect converts one wire effect into its typed form.
func DecodeEffect(data []byte) (Effect, error) {
	var w wireEffect
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode effect: %w", err)
	}

	kind := strings.ToUpper(strings.TrimSpace(w.Type))
	switch kind {
	case KindSetOrigin:
		return SetOrigin{Origin: w.str()}, nil
	case KindModifyResource:
		n, err := w.number()
		if err != nil {
			return nil, err
		}
		return ModifyResource{Resource: asString(w.Target), Delta: n}, nil
	case KindModifyAspect:
		n, err := w.number()
		if err != nil {
			return nil, err
		}
		return ModifyAspect{Aspect: strings.ToLower(asString(w.Target)), Delta: n}, nil
	case KindUnlockLocation:
		return UnlockLocation{Location: w.str()}, nil
	case KindAddTag:
		return AddTag{Tag: w.str()}, nil
	case KindAddFact:
		e := AddFact{FactID: w.str()}
		if obj := w.object(); obj != nil {
			var f Fact
			if err := json.Unmarshal(obj, &f); err != nil {
				return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
			}
			if f.ID == "" {
				f.ID = e.FactID
			}
			e.FactID, e.Fact = f.ID, &f
		}
		if e.FactID == "" {
			return nil, fmt.Errorf("%s requires a fact id", kind)
		}
		return e, nil
	case KindAddItem:
		e := AddItem{ItemID: w.str()}
		if obj := w.object(); obj != nil {
			var it Item
			if err := json.Unmarshal(obj, &it); err != nil {
				return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
			}
			if it.ID == "" {
				it.ID = e.ItemID
			}
			if it.Tags == nil {
				it.Tags = []string{}
			}
			e.ItemID, e.Item = it.ID, &it
		}
		if e.ItemID == "" {
			return nil, fmt.Errorf("%s requires an item id", kind)
		}
		return e, nil
	case KindRemoveItem:
		return RemoveItem{ItemID: w.str()}, nil
	case KindChapterComplete:
		n, err := w.number()
		if err != nil {
			return nil, err
		}
		return ChapterComplete{Chapter: n}, nil
	case KindSetChapter:
		n, err := w.number()
		if err != nil {
			return nil, err
		}
		return SetChapter{Chapter: n}, nil
	case KindSetIdentity:
		return SetIdentity{Identity: w.str()}, nil
	case KindAddCharacter:
		var c Character
		if err := w.decodeObject(kind, &c); err != nil {
			return nil, err
		}
		if c.ID == "" {
			c.ID = asString(w.Target)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("%s requires a character id", kind)
		}
		return AddCharacter{Character: c}, nil
	case KindUpdateCharacter:
		var body struct {
			ID      string           `json:"id"`
			Updates *CharacterUpdate `json:"updates"`
		}
		if err := w.decodeObject(kind, &body); err != nil {
			return nil, err
		}
		e := UpdateCharacter{ID: body.ID}
		if e.ID == "" {
			e.ID = asString(w.Target)
		}
		if body.Updates != nil {
			e.Updates = *body.Updates
		} else if err := json.Unmarshal(w.object(), &e.Updates); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		if e.ID == "" {
			return nil, fmt.Errorf("%s requires a character id", kind)
		}
		return e, nil
	case KindAddRite:
		var r Rite
		if err := w.decodeObject(kind, &r); err != nil {
			return nil, err
		}
		return AddRite{Rite: r}, nil
	case KindAddLore:
		return AddLore{LoreID: w.str()}, nil
	case KindAddLanguage:
		var l Language
		if err := w.decodeObject(kind, &l); err != nil {
			return nil, err
		}
		return AddLanguage{Language: l}, nil
	case KindAddLocation:
		var l LocationInfo
		if err := w.decodeObject(kind, &l); err != nil {
			return nil, err
		}
		if l.ID == "" {
			l.ID = l.Name
		}
		return AddLocation{Location: l}, nil
	case KindMarkBookRead:
		return MarkBookRead{BookID: w.str()}, nil
	case KindMarkLoreMastered:
		e := MarkLoreMastered{LoreID: w.str()}
		if obj := w.object(); obj != nil {
			var body struct {
				Lore
				Aspect string `json:"aspect"`
			}
			if err := json.Unmarshal(obj, &body); err != nil {
				return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
			}
			l := body.Lore
			if l.ID == "" {
				l.ID = e.LoreID
			}
			if l.Principle == "" {
				l.Principle = body.Aspect
			}
			if l.Level == 0 {
				l.Level = 1
			}
			e.LoreID, e.Lore = l.ID, &l
		}
		return e, nil
	case KindModifyTime:
		n, err := w.number()
		if err != nil {
			return nil, err
		}
		return ModifyTime{Minutes: n}, nil
	}
	return nil, &UnknownEffectError{Type: w.Type}
}

// DecodeEffects decodes each raw effect in order. Effects that fail to
// decode are skipped and their errors returned alongside the rest.
func DecodeEffects(raws []json.RawMessage) ([]Effect, []error) {
	effects := make([]Effect, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		e, err := DecodeEffect(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("effect %d: %w", i, err))
			continue
		}
		effects = append(effects, e)
	}
	return effects, errs
}

// str returns the string argument: target when set, otherwise a string value.
func (w wireEffect) str() string {
	if s := asString(w.Target); s != "" {
		return s
	}
	return asString(w.Value)
}

// maxEffectValue bounds numeric effect values. Larger magnitudes are
// rejected rather than converted.
const maxEffectValue = math.MaxInt32

// number returns the numeric value, accepting numeric strings.
func (w wireEffect) number() (int, error) {
	raw := bytes.TrimSpace(w.Value)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%s requires a numeric value", w.Type)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		s := strings.TrimPrefix(asString(raw), "+")
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, fmt.Errorf("%s has non-numeric value %s", w.Type, string(raw))
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxEffectValue {
		return 0, fmt.Errorf("%s value %s is out of range", w.Type, string(raw))
	}
	return int(f), nil
}

// object returns the payload, or the value when the value is an object.
func (w wireEffect) object() json.RawMessage {
	if isObject(w.Payload) {
		return w.Payload
	}
	if isObject(w.Value) {
		return w.Value
	}
	return nil
}

func (w wireEffect) decodeObject(kind string, target any) error {
	obj := w.object()
	if obj == nil {
		return fmt.Errorf("%s requires an object payload", kind)
	}
	if err := json.Unmarshal(obj, target); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
