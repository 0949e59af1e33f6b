package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. Each named check is pinged by
// the readiness probe.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Live godoc
// @ID           healthLive
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthData]
// @Router       /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse[HealthData]{
		Success: true,
		Data:    HealthData{Status: "healthy"},
	})
}

// Ready godoc
// @ID           healthReady
// @Summary      Readiness probe
// @Description  Pings the database and the session store
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthData]
// @Failure      503 {object} APIResponse[HealthData]
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	data := HealthData{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			data.Checks[name] = "error"
			data.Status = "unhealthy"
			continue
		}
		data.Checks[name] = "ok"
	}

	status := http.StatusOK
	if data.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, APIResponse[HealthData]{Success: status == http.StatusOK, Data: data})
}
