package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// QueueLength reports the backlog of a worker queue.
type QueueLength func(ctx context.Context) (int64, error)

// SystemHandler serves process health.
type SystemHandler struct {
	checks     map[string]HealthCheck
	auditQueue QueueLength
	startTime  time.Time
	log        zerolog.Logger
}

func NewSystemHandler(checks map[string]HealthCheck, auditQueue QueueLength, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		checks:     checks,
		auditQueue: auditQueue,
		startTime:  time.Now(),
		log:        log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Checks     map[string]string `json:"checks"`
	Goroutines int               `json:"goroutines"`
	HeapAlloc  uint64            `json:"heap_alloc"`
	NumGC      uint32            `json:"num_gc"`
	GoVersion  string            `json:"go_version"`
	AuditQueue int64             `json:"audit_queue"`
}

// Health godoc
// GET /health
// 200 when every dependency answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:    "ok",
		Uptime:    formatDuration(time.Since(h.startTime)),
		Checks:    make(map[string]string, len(h.checks)),
		GoVersion: runtime.Version(),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("Health check failed")
			report.Checks[name] = "down"
			report.Status = "degraded"
			continue
		}
		report.Checks[name] = "up"
	}

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report.Goroutines = runtime.NumGoroutine()
	report.HeapAlloc = ms.HeapAlloc
	report.NumGC = ms.NumGC

	// ── Worker Queue ──
	if h.auditQueue != nil {
		if n, err := h.auditQueue(ctx); err == nil {
			report.AuditQueue = n
		}
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
