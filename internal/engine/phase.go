package engine

// Phase is the turn pipeline state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseBuildingContext
	PhaseStreamingNarration
	PhaseNarrationCommitted
	PhaseAnalyzing
	PhaseApplyingEffects
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuildingContext:
		return "building context"
	case PhaseStreamingNarration:
		return "streaming narration"
	case PhaseNarrationCommitted:
		return "narration committed"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseApplyingEffects:
		return "applying effects"
	}
	return "unknown"
}
