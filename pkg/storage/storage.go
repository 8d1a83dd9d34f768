package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// Record keys. The game, the cross-run progress ledger and the player
// preferences are stored independently.
const (
	KeyGame  = "pale-notes:game"
	KeyMeta  = "pale-notes:meta"
	KeyPrefs = "pale-notes:prefs"
)

// Storage defines a unified interface for all persistence operations.
// Load methods return nil with no error when nothing has been saved.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations
	SaveGame(ctx context.Context, gs *state.GameState) error
	LoadGame(ctx context.Context) (*state.GameState, error)
	DeleteGame(ctx context.Context) error

	// Progress ledger operations
	SaveProgress(ctx context.Context, p *meta.Progress) error
	LoadProgress(ctx context.Context) (*meta.Progress, error)

	// Preferences operations
	SavePreferences(ctx context.Context, prefs *meta.Preferences) error
	LoadPreferences(ctx context.Context) (*meta.Preferences, error)
}

// EncodeGame serialises gs. The started flag and the snapshot slot are
// never written.
func EncodeGame(gs *state.GameState) ([]byte, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	return data, nil
}

// DecodeGame restores a game over the initial state so fields missing
// from older records keep their defaults.
func DecodeGame(data []byte) (*state.GameState, error) {
	gs := state.NewGameState()
	if err := json.Unmarshal(data, gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	gs.Started = false
	gs.Snapshot = nil
	return gs, nil
}

func EncodeProgress(p *meta.Progress) ([]byte, error) {
	data, err := json.Marshal(p.Copy())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return data, nil
}

func DecodeProgress(data []byte) (*meta.Progress, error) {
	p := meta.NewProgress()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return p, nil
}

func EncodePreferences(prefs *meta.Preferences) ([]byte, error) {
	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return data, nil
}

func DecodePreferences(data []byte) (*meta.Preferences, error) {
	prefs := meta.DefaultPreferences()
	if err := json.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return prefs, nil
}
