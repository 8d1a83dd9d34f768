package state

import (
	"encoding/json"
	"fmt"
)

// Clone returns a deep copy of gs without its snapshot slot.
func (gs *GameState) Clone() (*GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	var cp GameState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	cp.Started = gs.Started
	return &cp, nil
}

// SaveSnapshot stores a deep copy of the current state in the snapshot
// slot, overwriting any earlier snapshot. Session-only fields are excluded.
func (gs *GameState) SaveSnapshot() error {
	cp, err := gs.Clone()
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	cp.Started = false
	gs.Snapshot = cp
	return nil
}

// HasSnapshot reports whether a snapshot is available to restore.
func (gs *GameState) HasSnapshot() bool {
	return gs.Snapshot != nil
}

// RestoreSnapshot replaces the state with the snapshot contents and clears
// the slot. It reports false if there was nothing to restore.
func (gs *GameState) RestoreSnapshot() bool {
	snap := gs.Snapshot
	if snap == nil {
		return false
	}
	started := gs.Started
	*gs = *snap
	gs.Started = started
	gs.Snapshot = nil
	return true
}
