package repository

import (
	"context"
	"time"

	"github.com/opsis/opsis-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// SessionRepository stores live login sessions in Redis, one key per token id.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// Create registers a session that expires after ttl.
func (r *SessionRepository) Create(ctx context.Context, userID, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, config.CacheKey.SessionKey(userID, jti), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// Exists reports whether the session is still live.
func (r *SessionRepository) Exists(ctx context.Context, userID, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, config.CacheKey.SessionKey(userID, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete revokes one session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, userID, jti string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionKey(userID, jti)).Err()
}

// DeleteAll revokes every session of a user and returns how many were removed.
func (r *SessionRepository) DeleteAll(ctx context.Context, userID string) (int, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, config.CacheKey.SessionPattern(userID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.rdb.Del(ctx, keys...).Result()
	return int(n), err
}
