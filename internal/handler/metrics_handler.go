package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-lms-gradesync/internal/service"
)

const readyTimeout = 2 * time.Second

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. checks are run by Ready, keyed by dependency name.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every readiness check and answers 503 when any fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
