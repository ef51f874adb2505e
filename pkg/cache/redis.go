package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
)

// NewRedis returns a configured Redis client. An empty host disables Redis and yields (nil, nil)
// so callers can fall back to in-process state.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}
