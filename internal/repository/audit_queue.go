package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// AuditQueue buffers audit entries in a Redis list until they can be stored.
type AuditQueue struct {
	rdb *redis.Client
}

// NewAuditQueue creates a new AuditQueue.
func NewAuditQueue(rdb *redis.Client) *AuditQueue {
	return &AuditQueue{rdb: rdb}
}

// Push appends entries to the tail of the queue.
func (q *AuditQueue) Push(ctx context.Context, entries ...model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry: %w", err)
		}
		values = append(values, raw)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, values...).Err()
}

// Pop blocks up to timeout for the head entry. It returns redis.Nil when the queue
// stayed empty.
func (q *AuditQueue) Pop(ctx context.Context, timeout time.Duration) (model.AuditEntry, error) {
	var e model.AuditEntry
	item, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistAuditQueue).Result()
	if err != nil {
		return e, err
	}
	if len(item) < 2 {
		return e, redis.Nil
	}
	if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
		return e, fmt.Errorf("decode audit entry: %w", err)
	}
	return e, nil
}

// Len returns the number of queued entries.
func (q *AuditQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, config.WorkerKey.PersistAuditQueue).Result()
}
