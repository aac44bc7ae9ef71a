package prefstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connPrefKeyPrefix = "mpsched:conn_sched:"

// RedisStore is a multi-node Store backed by Redis, for a fleet of
// gateway processes sharing one per-connection preference space.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	Client *redis.Client
	Logger *zap.Logger
	TTL    time.Duration // 0 means the key never expires
}

// NewRedisStore creates a Redis-backed preference store.
func NewRedisStore(cfg *RedisStoreConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("prefstore: redis client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: cfg.Client, logger: logger, ttl: cfg.TTL}, nil
}

func (s *RedisStore) Get(ctx context.Context, connID string) (string, error) {
	val, err := s.client.Get(ctx, connPrefKeyPrefix+connID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("prefstore: get %s: %w", connID, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, connID, schedName string) error {
	if err := s.client.Set(ctx, connPrefKeyPrefix+connID, schedName, s.ttl).Err(); err != nil {
		return fmt.Errorf("prefstore: set %s: %w", connID, err)
	}
	s.logger.Debug("recorded connection scheduler preference",
		zap.String("conn_id", connID), zap.String("scheduler", schedName))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, connID string) error {
	if err := s.client.Del(ctx, connPrefKeyPrefix+connID).Err(); err != nil {
		return fmt.Errorf("prefstore: delete %s: %w", connID, err)
	}
	return nil
}
