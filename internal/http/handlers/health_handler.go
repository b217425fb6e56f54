package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck проверка одной зависимости.
type HealthCheck func(ctx context.Context) error

// ConnectionCounter число активных WebSocket пользователей.
type ConnectionCounter interface {
	ConnectedUsers() int
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	checks map[string]HealthCheck
	hub    ConnectionCounter
}

// NewHealthHandler создаёт новый health handler. hub может быть nil.
func NewHealthHandler(checks map[string]HealthCheck, hub ConnectionCounter) *HealthHandler {
	return &HealthHandler{checks: checks, hub: hub}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks"`
	WSConnected int               `json:"ws_connected_users"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	status := "healthy"
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
			continue
		}
		checks[name] = "healthy"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
	if h.hub != nil {
		resp.WSConnected = h.hub.ConnectedUsers()
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, resp)
}
