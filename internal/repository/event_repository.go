package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// EventRepository publishes exam events on Redis PubSub.
type EventRepository struct {
	rdb *redis.Client
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(rdb *redis.Client) *EventRepository {
	return &EventRepository{rdb: rdb}
}

// PublishExamEvent sends ev to the exam's realtime room relay.
func (r *EventRepository) PublishExamEvent(ctx context.Context, ev model.ExamEvent) error {
	return r.publish(ctx, config.CacheKey.ExamEventsChannel(ev.ExamID.String()), ev)
}

// PublishMonitorEvent sends ev to the exam's live monitor stream.
func (r *EventRepository) PublishMonitorEvent(ctx context.Context, ev model.ExamEvent) error {
	return r.publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID.String()), ev)
}

func (r *EventRepository) publish(ctx context.Context, channel string, ev model.ExamEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.rdb.Publish(ctx, channel, raw).Err()
}

// SubscribeMonitor opens a subscription to the exam's monitor channel. The caller
// closes it.
func (r *EventRepository) SubscribeMonitor(ctx context.Context, examID string) *redis.PubSub {
	return r.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
}

// SubscribeExamEvents opens a pattern subscription to every exam's event channel.
func (r *EventRepository) SubscribeExamEvents(ctx context.Context) *redis.PubSub {
	return r.rdb.PSubscribe(ctx, config.CacheKey.ExamEventsPattern())
}
