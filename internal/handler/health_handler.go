package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/financial-coach-api/internal/service"
)

const readyTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB and the cache repository.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type cachePinger interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness, readiness and metrics endpoints.
type HealthHandler struct {
	service string
	db      Pinger
	cache   cachePinger
	metrics *service.MetricsService
	now     func() time.Time
}

// NewHealthHandler constructs a health handler. cache may be nil.
func NewHealthHandler(serviceName string, db Pinger, cache cachePinger, metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{service: serviceName, db: db, cache: cache, metrics: metrics, now: time.Now}
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"service":   h.service,
		"timestamp": strconv.FormatInt(h.now().UnixMilli(), 10),
	})
}

// Ready godoc
// @Summary Readiness probe
// @Description Fails with 503 when the database is unreachable
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "UP", "database": "up", "redis": "disabled"}

	if h.db == nil || h.db.PingContext(ctx) != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "DOWN"
		body["database"] = "down"
	}
	if h.cache != nil && h.cache.Enabled() {
		body["redis"] = "up"
		if err := h.cache.Ping(ctx); err != nil {
			body["redis"] = "down"
		}
	}
	c.JSON(status, body)
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
