package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorUseCases authorizes watchers and builds snapshots.
type MonitorUseCases interface {
	Authorize(ctx context.Context, subj policy.Subject, examID uuid.UUID) (*model.Exam, error)
	Snapshot(ctx context.Context, exam *model.Exam) (*service.MonitorSnapshot, error)
}

// MonitorFeed subscribes to an exam's monitor channel.
type MonitorFeed interface {
	SubscribeMonitor(ctx context.Context, examID string) *redis.PubSub
}

// MonitorHandler streams live attempt activity to exam owners.
type MonitorHandler struct {
	monitor MonitorUseCases
	feed    MonitorFeed
	log     zerolog.Logger
}

func NewMonitorHandler(monitor MonitorUseCases, feed MonitorFeed, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		feed:    feed,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/exams/:id/monitor
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	// 1. Auth check
	subj, ok := subject(c)
	if !ok {
		return
	}
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	exam, err := h.monitor.Authorize(reqCtx, subj, examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	// 2. SSE headers
	response.StartStream(c)

	// 3. Subscribe before the snapshot so no event falls between the two
	pubsub := h.feed.SubscribeMonitor(reqCtx, examID.String())
	defer pubsub.Close()
	ch := pubsub.Channel()

	wlog := h.log.With().Str("exam_id", examID.String()).Str("user_id", subj.UserID).Logger()

	// 4. Initial snapshot
	if err := h.sendSnapshot(c, exam, "snapshot"); err != nil {
		wlog.Info().Err(err).Msg("Monitor client gone before snapshot")
		return
	}

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes while nothing happens
	dirty := false

	wlog.Info().Msg("Attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			wlog.Info().Msg("Detached from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				wlog.Warn().Msg("Monitor subscription closed")
				return
			}
			// Events are already JSON
			if err := response.StreamEvent(c, []byte(msg.Payload)); err != nil {
				wlog.Info().Err(err).Msg("Monitor client gone")
				return
			}
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			if err := h.sendSnapshot(c, exam, "refresh"); err != nil {
				wlog.Info().Err(err).Msg("Monitor client gone")
				return
			}
			dirty = false

		case <-keepAliveTicker.C:
			if err := response.StreamEvent(c, pingPayload); err != nil {
				wlog.Info().Err(err).Msg("Monitor client gone")
				return
			}
		}
	}
}

// sendSnapshot streams the current snapshot. A failed query is logged and skipped;
// only a failed write is returned.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, exam *model.Exam, kind string) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.monitor.Snapshot(ctx, exam)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to build monitor snapshot")
		return nil
	}
	snap.Type = kind

	data, err := json.Marshal(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("Encode monitor snapshot")
		return nil
	}
	return response.StreamEvent(c, data)
}
