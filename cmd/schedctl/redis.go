package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/aetherflow/mpsched/internal/config"
)

// newRedisClient builds the redis client backing a redis-flavored
// preference store, grounded on the teacher's session-service redis wiring.
func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}
