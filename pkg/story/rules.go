package story

// Mode selects how an empty trigger list evaluates.
type Mode int

const (
	// ForEvent is event selection: an empty list never fires.
	ForEvent Mode = iota
	// ForOption is option availability: an empty list is always satisfied.
	ForOption
)

// EvaluateTriggers is a logical AND over triggers. The result for an empty
// list depends on mode.
func EvaluateTriggers(triggers []Trigger, v GameStateView, mode Mode) bool {
	if len(triggers) == 0 {
		return mode == ForOption
	}
	for _, t := range triggers {
		if !evaluate(t, v) {
			return false
		}
	}
	return true
}

func evaluate(t Trigger, v GameStateView) bool {
	switch t := t.(type) {
	case ChapterStart:
		return v.GetChapter() == t.ChapterID
	case ResourceThreshold:
		return t.Operator.Compare(v.GetResource(t.Resource), t.Value)
	case AspectThreshold:
		return t.Operator.Compare(v.GetAspect(t.Aspect), t.Value)
	case HasTag:
		return v.HasTag(t.Tag)
	case HasItem:
		return v.HasItem(t.ItemID)
	case HasLore:
		return v.HasLore(t.LoreID)
	case HasFact:
		return v.HasFact(t.FactID)
	case LocationEnter:
		return v.GetLocation() == t.LocationID
	case OriginIs:
		return v.GetOrigin() == t.Origin
	}
	return false
}

// SelectEvent returns the first event, in declaration order, that is not
// completed and whose triggers all hold. It returns nil if none qualifies.
func SelectEvent(events []StoryEvent, v GameStateView) *StoryEvent {
	for i := range events {
		e := &events[i]
		if v.IsEventCompleted(e.ID) {
			continue
		}
		if EvaluateTriggers(e.Triggers, v, ForEvent) {
			return e
		}
	}
	return nil
}

// IsOptionAvailable reports whether the option's prerequisites hold.
func IsOptionAvailable(opt StoryOption, v GameStateView) bool {
	return EvaluateTriggers(opt.Requires, v, ForOption)
}

// AvailableOptions filters an event's options by IsOptionAvailable.
func AvailableOptions(e *StoryEvent, v GameStateView) []StoryOption {
	if e == nil {
		return nil
	}
	out := make([]StoryOption, 0, len(e.Options))
	for _, opt := range e.Options {
		if IsOptionAvailable(opt, v) {
			out = append(out, opt)
		}
	}
	return out
}
