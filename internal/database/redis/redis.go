package redis

import (
	"context"
	"fmt"

	"DocuMind/internal/config"
	"github.com/go-redis/redis/v8"
)

// NewClient connects to Redis and verifies the connection with a ping.
// The returned client is owned by the caller; there is no package-level
// instance.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// HealthCheck pings the server.
func HealthCheck(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return rdb.Ping(ctx).Err()
}
