package state

// UpdatePacing advances the turns-since-major-event counter. A turn that
// ends offering exactly one option is treated as a forced beat and resets
// the counter; any other count increments it by one.
func (gs *GameState) UpdatePacing(optionCount int) {
	if optionCount == 1 {
		gs.TurnsSinceLastMajorEvent = 0
		return
	}
	gs.TurnsSinceLastMajorEvent++
}
