package prompts

import (
	"fmt"

	"github.com/jwebster45206/pale-notes/pkg/state"
)

// ToneGuides give the narrator a register for each dominant aspect.
var ToneGuides = map[string]string{
	state.AspectLantern: "Lantern: clarity that hurts. Describe light, geometry and revelation; truths seen too clearly.",
	state.AspectForge:   "Forge: change by fire. Heat, craft, ambition, the violence of making something new.",
	state.AspectEdge:    "Edge: conflict and cost. Blades, rivalry, cold strategy; every gain has a wound attached.",
	state.AspectWinter:  "Winter: silence and endings. Stillness, snow, grief held with dignity; understate everything.",
	state.AspectHeart:   "Heart: the drum that keeps things alive. Rhythm, protection, stubborn warmth, breath.",
	state.AspectGrail:   "Grail: hunger and the senses. Taste, desire, seduction and birth; lush and a little sickening.",
	state.AspectMoth:    "Moth: restlessness and the Wood. Fragmented, instinctive, dust and wings; logic slips at the edges.",
	state.AspectKnock:   "Knock: openings. Doors, wounds, secrets; things that should stay closed are ajar.",
	state.AspectNeutral: "Neutral: grounded Edwardian realism with a faint wrongness. The uncanny is glimpsed, not named.",
}

// ChapterGuides describe the focus of each chapter, keyed by ChapterKey.
var ChapterGuides = map[string]string{
	"prologue":  "Prologue: the ordinary life cracks. Establish the player's background and the first impossible thing they witness. End on recruitment.",
	"chapter_1": "Chapter One: the Bureau's errand. The player learns to walk at night, meets the bookshop, and reads something that reads back.",
	"chapter_2": "Chapter Two: the Skin of Night. Loyalties are tested; the Bureau and the bookshop want different things.",
}

// ChapterKey maps a chapter index to its guide key.
func ChapterKey(chapter int) string {
	if chapter == 0 {
		return "prologue"
	}
	return fmt.Sprintf("chapter_%d", chapter)
}

// DominantAspect returns the aspect with the highest strictly positive
// value. Ties keep the earliest declared aspect; when nothing is above
// zero the result is "neutral".
func DominantAspect(a state.Aspects) string {
	best, dominant := 0, state.AspectNeutral
	for _, name := range state.AspectNames {
		if v := a.Get(name); v > best {
			best, dominant = v, name
		}
	}
	return dominant
}
