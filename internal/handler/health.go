package handler // contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness. Redis is the single external store,
// so its reachability decides healthy vs degraded.
type HealthHandler struct {
	rdb *redis.Client
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(rdb *redis.Client) *HealthHandler {
	return &HealthHandler{rdb: rdb}
}

// Health handles GET /healthz. It pings Redis with a short timeout and
// returns a 200 with the connection status either way, so load balancers can
// distinguish "up but degraded" from "down".
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	redisOK := h.rdb != nil && h.rdb.Ping(ctx).Err() == nil
	status := "healthy"
	if !redisOK {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":          status,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"redis_connected": redisOK,
	})
}
