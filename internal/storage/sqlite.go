package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

// SQLiteStorage keeps each record as a row in a single key/value table.
type SQLiteStorage struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// Ensure SQLiteStorage implements Storage interface
var _ storage.Storage = (*SQLiteStorage)(nil)

type record struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// OpenSQLite opens or creates a database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStorage{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStorage) put(ctx context.Context, key string, data []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (key, value, updated_at) VALUES (?, ?, ?)`,
		key, string(data), time.Now().UnixMilli())
	if err != nil {
		s.logger.Error("Failed to write record", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// get returns nil data when the row does not exist.
func (s *SQLiteStorage) get(ctx context.Context, key string) ([]byte, error) {
	var rec record
	err := s.conn.GetContext(ctx, &rec, `SELECT key, value, updated_at FROM records WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("Failed to read record", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	data, err := storage.EncodeGame(gs)
	if err != nil {
		return err
	}
	return s.put(ctx, storage.KeyGame, data)
}

func (s *SQLiteStorage) LoadGame(ctx context.Context) (*state.GameState, error) {
	data, err := s.get(ctx, storage.KeyGame)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodeGame(data)
}

func (s *SQLiteStorage) DeleteGame(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, storage.KeyGame); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveProgress(ctx context.Context, p *meta.Progress) error {
	data, err := storage.EncodeProgress(p)
	if err != nil {
		return err
	}
	return s.put(ctx, storage.KeyMeta, data)
}

func (s *SQLiteStorage) LoadProgress(ctx context.Context) (*meta.Progress, error) {
	data, err := s.get(ctx, storage.KeyMeta)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodeProgress(data)
}

func (s *SQLiteStorage) SavePreferences(ctx context.Context, prefs *meta.Preferences) error {
	data, err := storage.EncodePreferences(prefs)
	if err != nil {
		return err
	}
	return s.put(ctx, storage.KeyPrefs, data)
}

func (s *SQLiteStorage) LoadPreferences(ctx context.Context) (*meta.Preferences, error) {
	data, err := s.get(ctx, storage.KeyPrefs)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodePreferences(data)
}
