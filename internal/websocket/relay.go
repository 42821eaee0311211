package websocket

import (
	"context"
	"encoding/json"

	"github.com/opsis/opsis-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventSource opens the pattern subscription over every exam's event channel.
type EventSource interface {
	SubscribeExamEvents(ctx context.Context) *redis.PubSub
}

// Relay forwards exam events published by any API process to the local exam rooms.
type Relay struct {
	source   EventSource
	registry *Registry
	log      zerolog.Logger
}

// NewRelay creates a new Relay.
func NewRelay(source EventSource, registry *Registry, log zerolog.Logger) *Relay {
	return &Relay{
		source:   source,
		registry: registry,
		log:      log.With().Str("component", "ws_relay").Logger(),
	}
}

// Run relays events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.source.SubscribeExamEvents(ctx)
	defer pubsub.Close()

	r.log.Info().Msg("Exam event relay started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Exam event relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				r.log.Warn().Msg("Exam event subscription closed")
				return
			}
			r.Forward([]byte(msg.Payload))
		}
	}
}

// Forward broadcasts one encoded model.ExamEvent to its exam room as exam_updated and
// returns the number of deliveries.
func (r *Relay) Forward(payload []byte) int {
	var ev model.ExamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		r.log.Warn().Err(err).Msg("Dropping malformed exam event")
		return 0
	}

	data, err := json.Marshal(map[string]any{
		"event":     ev.Type,
		"user_id":   ev.UserID,
		"data":      ev.Data,
		"timestamp": ev.Timestamp,
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Encode exam event")
		return 0
	}
	raw, err := json.Marshal(OutboundMessage{Type: TypeExamUpdated, ExamID: ev.ExamID.String(), Data: data})
	if err != nil {
		r.log.Error().Err(err).Msg("Encode exam event")
		return 0
	}
	return r.registry.BroadcastToRoom(ev.ExamID.String(), raw, "")
}
