package database

import (
	"context"
	"fmt"

	"github.com/opsis/opsis-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisClientName tags backend connections in CLIENT LIST.
const RedisClientName = "opsis-backend"

// NewRedisClient creates and validates a Redis client connection.
// Redis carries login sessions, realtime fan-out between replicas and the audit retry queue.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if opt.ClientName == "" {
		opt.ClientName = RedisClientName
	}
	rdb := redis.NewClient(opt)

	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := pingWithRetry(ctx, log, "redis", ping); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("client_name", opt.ClientName).
		Msg("Redis connected")

	return rdb, nil
}
