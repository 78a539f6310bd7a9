package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether an optional dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pool    PoolSource
	redis   Pinger
	breaker func() string
}

// NewHealthHandler creates the health checks. redis and breaker may be nil.
func NewHealthHandler(pool PoolSource, redis Pinger, breaker func() string) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		redis:   redis,
		breaker: breaker,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness checks
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "fpl-optimizer",
	})
}

// GetReady returns 200 once a player snapshot is loaded.
func (h *HealthHandler) GetReady(c *gin.Context) {
	status := h.pool.Status()
	body := gin.H{
		"pool": status,
	}
	if h.breaker != nil {
		body["fpl_api"] = h.breaker()
	}
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			body["redis"] = err.Error()
		} else {
			body["redis"] = "ok"
		}
	}

	if status.Ready {
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	} else {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
	}
}
