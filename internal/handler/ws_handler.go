package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/response"
	ws "github.com/opsis/opsis-backend/internal/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the realtime socket and registry statistics.
type WSHandler struct {
	registry     *ws.Registry
	metrics      *metrics.Metrics
	log          zerolog.Logger
	upgrader     websocket.Upgrader
	messageRate  rate.Limit
	messageBurst int
}

// NewWSHandler creates a new WSHandler. Each connection may send messagesPerSecond
// messages per second with bursts of burst.
func NewWSHandler(registry *ws.Registry, m *metrics.Metrics, log zerolog.Logger, allowedOrigins []string, messagesPerSecond float64, burst int) *WSHandler {
	if burst < 1 {
		burst = 1
	}
	return &WSHandler{
		registry:     registry,
		metrics:      m,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
		messageRate:  rate.Limit(messagesPerSecond),
		messageBurst: burst,
	}
}

// Connect godoc
// WS /ws?token=...
// Upgrades an authenticated request and feeds its messages to the registry until
// the client goes away.
func (h *WSHandler) Connect(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := ws.NewConn(raw)
	id := h.registry.Connect(conn, subj)
	defer h.registry.Disconnect(id)

	wsLog := h.log.With().Str("conn_id", id).Str("user_id", subj.UserID).Logger()
	limiter := rate.NewLimiter(h.messageRate, h.messageBurst)

	ctx := c.Request.Context()

	for {
		msg, err := conn.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if !limiter.Allow() {
			h.metrics.DroppedMessages.WithLabelValues("rate_limited").Inc()
			wsLog.Warn().Msg("Message rate exceeded, dropping")
			continue
		}

		h.registry.Dispatch(ctx, id, msg)
	}
}

// Stats godoc
// GET /api/ws/stats
func (h *WSHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.registry.Stats())
}
