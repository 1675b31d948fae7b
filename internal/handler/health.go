package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
)

// Pinger probes database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueHealth probes broker connectivity.
type QueueHealth interface {
	IsHealthy() bool
}

// HealthHandler aggregates collaborator health probes.
type HealthHandler struct {
	db        Pinger
	queue     QueueHealth
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler. Either collaborator may be
// nil when the binary does not use it.
func NewHealthHandler(db Pinger, queue QueueHealth) *HealthHandler {
	return &HealthHandler{
		db:        db,
		queue:     queue,
		startedAt: time.Now(),
	}
}

// LivenessProbe reports that the process is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks every configured collaborator and degrades the
// overall status when any of them is unreachable.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	resp := models.HealthResponse{
		Status:        "UP",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Timestamp:     time.Now(),
	}

	if h.db != nil {
		svc := models.ServiceHealth{Service: "postgres", Status: "UP"}
		if err := h.db.Ping(ctx); err != nil {
			svc.Status = "DOWN"
			svc.Details = err.Error()
			resp.Status = "DOWN"
		}
		resp.Services = append(resp.Services, svc)
	}

	if h.queue != nil {
		svc := models.ServiceHealth{Service: "rabbitmq", Status: "UP"}
		if !h.queue.IsHealthy() {
			svc.Status = "DOWN"
			resp.Status = "DOWN"
		}
		resp.Services = append(resp.Services, svc)
	}

	status := http.StatusOK
	if resp.Status == "DOWN" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
