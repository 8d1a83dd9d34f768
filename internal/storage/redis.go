package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

// RedisStorage implements the Storage interface using one Redis string
// per record.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance from a redis:// URL
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) set(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// get returns nil data when the key does not exist.
func (r *RedisStorage) get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Redis key not found", "key", key)
			return nil, nil
		}
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return data, nil
}

// GameState operations

func (r *RedisStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	data, err := storage.EncodeGame(gs)
	if err != nil {
		return err
	}
	return r.set(ctx, storage.KeyGame, data)
}

func (r *RedisStorage) LoadGame(ctx context.Context) (*state.GameState, error) {
	data, err := r.get(ctx, storage.KeyGame)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodeGame(data)
}

func (r *RedisStorage) DeleteGame(ctx context.Context) error {
	if err := r.client.Del(ctx, storage.KeyGame).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

// Progress ledger operations

func (r *RedisStorage) SaveProgress(ctx context.Context, p *meta.Progress) error {
	data, err := storage.EncodeProgress(p)
	if err != nil {
		return err
	}
	return r.set(ctx, storage.KeyMeta, data)
}

func (r *RedisStorage) LoadProgress(ctx context.Context) (*meta.Progress, error) {
	data, err := r.get(ctx, storage.KeyMeta)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodeProgress(data)
}

// Preferences operations

func (r *RedisStorage) SavePreferences(ctx context.Context, prefs *meta.Preferences) error {
	data, err := storage.EncodePreferences(prefs)
	if err != nil {
		return err
	}
	return r.set(ctx, storage.KeyPrefs, data)
}

func (r *RedisStorage) LoadPreferences(ctx context.Context) (*meta.Preferences, error) {
	data, err := r.get(ctx, storage.KeyPrefs)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.DecodePreferences(data)
}
