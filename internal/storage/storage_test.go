package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/pale-notes/internal/config"
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	r, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	return r, mr
}

func setupTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// exerciseStorage runs the same contract against every backend.
func exerciseStorage(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	gs, err := s.LoadGame(ctx)
	require.NoError(t, err)
	assert.Nil(t, gs)

	p, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	game := state.NewGameState()
	game.Story.Origin = "detective"
	game.Story.CurrentChapter = 1
	game.Aspects.Moth = 2
	game.AppendHistory(chat.ChatRoleUser, "read the book")
	game.CurrentOptions = []state.Option{{ID: "a", Text: "Go on", Style: "moth"}}
	require.NoError(t, s.SaveGame(ctx, game))

	// Overwrite keeps only the latest record.
	game.Location = "The Wood"
	require.NoError(t, s.SaveGame(ctx, game))

	loaded, err := s.LoadGame(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, game.ID, loaded.ID)
	assert.Equal(t, "The Wood", loaded.Location)
	assert.Equal(t, "detective", loaded.Story.Origin)
	assert.Equal(t, 2, loaded.Aspects.Moth)
	assert.Equal(t, game.History, loaded.History)
	assert.Equal(t, game.CurrentOptions, loaded.CurrentOptions)

	progress := meta.NewProgress()
	progress.MarkOriginComplete("detective")
	progress.AddKeyEvent("chapter_1_start")
	require.NoError(t, s.SaveProgress(ctx, progress))

	prefs := &meta.Preferences{APIKey: "sk-x", Theme: meta.ThemeDark, Model: "deepseek-chat"}
	require.NoError(t, s.SavePreferences(ctx, prefs))

	require.NoError(t, s.DeleteGame(ctx))
	loaded, err = s.LoadGame(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	gotProgress, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	require.NotNil(t, gotProgress)
	assert.Equal(t, []string{"detective"}, gotProgress.CompletedOrigins)
	assert.Equal(t, []string{"chapter_1_start"}, gotProgress.KeyEventsWitnessed)

	gotPrefs, err := s.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs, gotPrefs)
}

func TestRedisStorage(t *testing.T) {
	r, mr := setupTestRedis(t)
	defer mr.Close()
	defer func() { _ = r.Close() }()

	exerciseStorage(t, r)
	assert.False(t, mr.Exists(storage.KeyGame))
	assert.True(t, mr.Exists(storage.KeyMeta))
	assert.True(t, mr.Exists(storage.KeyPrefs))
}

func TestRedisStorage_CorruptRecord(t *testing.T) {
	r, mr := setupTestRedis(t)
	defer mr.Close()
	defer func() { _ = r.Close() }()

	require.NoError(t, mr.Set(storage.KeyGame, "{not json"))
	_, err := r.LoadGame(context.Background())
	assert.Error(t, err)
}

func TestRedisStorage_BadURL(t *testing.T) {
	_, err := NewRedisStorage("not-a-url", testLogger())
	assert.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	exerciseStorage(t, setupTestSQLite(t))
}

func TestSQLiteStorage_Pragmas(t *testing.T) {
	s := setupTestSQLite(t)

	var mode string
	require.NoError(t, s.conn.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.conn.Get(&timeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, timeout)
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	game := state.NewGameState()
	require.NoError(t, s.SaveGame(ctx, game))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, testLogger())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	loaded, err := s.LoadGame(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, game.ID, loaded.ID)
}

func TestMemoryBackend(t *testing.T) {
	exerciseStorage(t, storage.NewMemoryStorage())
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"memory", config.Config{StorageBackend: config.StorageMemory}, false},
		{"sqlite", config.Config{StorageBackend: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "open.db")}, false},
		{"bad redis url", config.Config{StorageBackend: config.StorageRedis, RedisURL: "::"}, true},
		{"unknown", config.Config{StorageBackend: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(&tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
