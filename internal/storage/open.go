package storage

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/pale-notes/internal/config"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

// Open returns the backend selected by STORAGE_BACKEND.
func Open(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil
	case config.StorageRedis:
		r, err := NewRedisStorage(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.StorageSQLite:
		s, err := OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
