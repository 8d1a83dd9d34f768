package story

import (
	"encoding/json"
	"fmt"
)

// GameStateView is the read-only state surface triggers are evaluated against.
type GameStateView interface {
	GetChapter() int
	GetOrigin() string
	GetLocation() string
	GetResource(name string) int
	GetAspect(name string) int
	HasTag(tag string) bool
	HasItem(id string) bool
	HasLore(id string) bool
	HasFact(id string) bool
	IsEventCompleted(id string) bool
}

// Trigger types as they appear in catalog data.
const (
	TriggerChapterStart      = "chapter_start"
	TriggerResourceThreshold = "resource_threshold"
	TriggerAspectThreshold   = "aspect_threshold"
	TriggerHasTag            = "has_tag"
	TriggerHasItem           = "has_item"
	TriggerHasLore           = "has_lore"
	TriggerHasFact           = "has_fact"
	TriggerLocationEnter     = "location_enter"
	TriggerOriginIs          = "origin_is"
)

// Trigger is a declarative predicate over game state. The set of
// implementations is closed; see evaluate.
type Trigger interface {
	Type() string
	trigger()
}

type ChapterStart struct{ ChapterID int }
type ResourceThreshold struct {
	Resource string
	Operator Operator
	Value    int
}
type AspectThreshold struct {
	Aspect   string
	Operator Operator
	Value    int
}
type HasTag struct{ Tag string }
type HasItem struct{ ItemID string }
type HasLore struct{ LoreID string }
type HasFact struct{ FactID string }
type LocationEnter struct{ LocationID string }
type OriginIs struct{ Origin string }

func (ChapterStart) Type() string      { return TriggerChapterStart }
func (ResourceThreshold) Type() string { return TriggerResourceThreshold }
func (AspectThreshold) Type() string   { return TriggerAspectThreshold }
func (HasTag) Type() string            { return TriggerHasTag }
func (HasItem) Type() string           { return TriggerHasItem }
func (HasLore) Type() string           { return TriggerHasLore }
func (HasFact) Type() string           { return TriggerHasFact }
func (LocationEnter) Type() string     { return TriggerLocationEnter }
func (OriginIs) Type() string          { return TriggerOriginIs }

func (ChapterStart) trigger()      {}
func (ResourceThreshold) trigger() {}
func (AspectThreshold) trigger()   {}
func (HasTag) trigger()            {}
func (HasItem) trigger()           {}
func (HasLore) trigger()           {}
func (HasFact) trigger()           {}
func (LocationEnter) trigger()     {}
func (OriginIs) trigger()          {}

// Operator is a threshold comparison.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Compare applies the operator as "a op b".
func (o Operator) Compare(a, b int) bool {
	switch o {
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	}
	return false
}

// Valid reports whether o is one of the four supported operators.
func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

type wireTrigger struct {
	Type       string   `json:"type"`
	ChapterID  *int     `json:"chapterId"`
	Resource   string   `json:"resource"`
	Aspect     string   `json:"aspect"`
	Value      *int     `json:"value"`
	Operator   Operator `json:"operator"`
	Tag        string   `json:"tag"`
	ItemID     string   `json:"itemId"`
	LoreID     string   `json:"loreId"`
	FactID     string   `json:"factId"`
	LocationID string   `json:"locationId"`
	Origin     string   `json:"origin"`
}

// DecodeTrigger converts one catalog trigger into its typed form.
func DecodeTrigger(data []byte) (Trigger, error) {
	var w wireTrigger
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	switch w.Type {
	case TriggerChapterStart:
		if w.ChapterID == nil {
			return nil, fmt.Errorf("%s requires chapterId", w.Type)
		}
		return ChapterStart{ChapterID: *w.ChapterID}, nil
	case TriggerResourceThreshold, TriggerAspectThreshold:
		if !w.Operator.Valid() {
			return nil, fmt.Errorf("%s has invalid operator %q", w.Type, w.Operator)
		}
		if w.Value == nil {
			return nil, fmt.Errorf("%s requires value", w.Type)
		}
		if w.Type == TriggerResourceThreshold {
			return ResourceThreshold{Resource: w.Resource, Operator: w.Operator, Value: *w.Value}, nil
		}
		return AspectThreshold{Aspect: w.Aspect, Operator: w.Operator, Value: *w.Value}, nil
	case TriggerHasTag:
		return HasTag{Tag: w.Tag}, nil
	case TriggerHasItem:
		return HasItem{ItemID: w.ItemID}, nil
	case TriggerHasLore:
		return HasLore{LoreID: w.LoreID}, nil
	case TriggerHasFact:
		return HasFact{FactID: w.FactID}, nil
	case TriggerLocationEnter:
		return LocationEnter{LocationID: w.LocationID}, nil
	case TriggerOriginIs:
		return OriginIs{Origin: w.Origin}, nil
	}
	return nil, fmt.Errorf("unknown trigger type %q", w.Type)
}
