package storage

import (
	"context"
	"sync"

	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
)

// MemoryStorage keeps encoded records in a map. It backs tests and the
// "memory" backend.
type MemoryStorage struct {
	mu        sync.RWMutex
	records   map[string][]byte
	pingError error
	saveError error
}

// Ensure MemoryStorage implements Storage interface
var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string][]byte),
	}
}

// SetPingError configures the store to fail on ping with the given error
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures every save to fail with the given error
func (m *MemoryStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) put(key string, data []byte, err error) error {
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.records[key] = data
	return nil
}

func (m *MemoryStorage) get(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[key]
}

func (m *MemoryStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	data, err := EncodeGame(gs)
	return m.put(KeyGame, data, err)
}

func (m *MemoryStorage) LoadGame(ctx context.Context) (*state.GameState, error) {
	data := m.get(KeyGame)
	if data == nil {
		return nil, nil
	}
	return DecodeGame(data)
}

func (m *MemoryStorage) DeleteGame(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, KeyGame)
	return nil
}

func (m *MemoryStorage) SaveProgress(ctx context.Context, p *meta.Progress) error {
	data, err := EncodeProgress(p)
	return m.put(KeyMeta, data, err)
}

func (m *MemoryStorage) LoadProgress(ctx context.Context) (*meta.Progress, error) {
	data := m.get(KeyMeta)
	if data == nil {
		return nil, nil
	}
	return DecodeProgress(data)
}

func (m *MemoryStorage) SavePreferences(ctx context.Context, prefs *meta.Preferences) error {
	data, err := EncodePreferences(prefs)
	return m.put(KeyPrefs, data, err)
}

func (m *MemoryStorage) LoadPreferences(ctx context.Context) (*meta.Preferences, error) {
	data := m.get(KeyPrefs)
	if data == nil {
		return nil, nil
	}
	return DecodePreferences(data)
}
