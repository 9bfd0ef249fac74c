package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"serviceshop/pkg/logger"
)

// readyTimeout bounds the storage ping of the readiness check.
const readyTimeout = 2 * time.Second

// Pinger checks the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the unauthenticated checks under /health.
type HealthHandler struct {
	store     Pinger
	backend   string
	stats     func() any
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
// stats may be nil when the backend has no connection pool.
func NewHealthHandler(store Pinger, backend, version string, stats func() any) *HealthHandler {
	return &HealthHandler{
		store:     store,
		backend:   backend,
		stats:     stats,
		version:   version,
		startedAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. The ping error is logged, not returned.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		logger.Warn(ctx, "readiness check failed", "storage", h.backend, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"storage": h.backend,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"storage":   h.backend,
		"latencyMs": time.Since(start).Milliseconds(),
	})
}

// Info handles GET /health/info.
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":           "serviceshop",
		"version":       h.version,
		"storage":       h.backend,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.stats != nil {
		body["pool"] = h.stats()
	}
	c.JSON(http.StatusOK, body)
}
