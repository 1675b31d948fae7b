package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
)

type pingStub struct{ err error }

func (p *pingStub) Ping(_ context.Context) error { return p.err }

type queueStub struct{ healthy bool }

func (q *queueStub) IsHealthy() bool { return q.healthy }

func newHealthRouter(db Pinger, queue QueueHealth) *gin.Engine {
	h := NewHealthHandler(db, queue)

	// Mirrors the route layout of cmd/api and cmd/webhook.
	router := gin.New()
	router.GET("/health", h.ReadinessProbe)
	router.GET("/health/live", h.LivenessProbe)
	router.GET("/health/ready", h.ReadinessProbe)
	return router
}

func TestHealthAggregate(t *testing.T) {
	router := newHealthRouter(&pingStub{}, &queueStub{healthy: true})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UP", resp.Status)
	assert.Len(t, resp.Services, 2)
}

func TestLivenessProbe(t *testing.T) {
	router := newHealthRouter(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UP")
}

func TestReadinessProbe(t *testing.T) {
	tests := []struct {
		name        string
		db          Pinger
		queue       QueueHealth
		wantStatus  int
		wantOverall string
	}{
		{"all healthy", &pingStub{}, &queueStub{healthy: true}, http.StatusOK, "UP"},
		{"database down", &pingStub{err: errors.New("connection refused")}, &queueStub{healthy: true}, http.StatusServiceUnavailable, "DOWN"},
		{"queue down", &pingStub{}, &queueStub{healthy: false}, http.StatusServiceUnavailable, "DOWN"},
		{"no collaborators", nil, nil, http.StatusOK, "UP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newHealthRouter(tt.db, tt.queue)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantOverall, resp.Status)
		})
	}
}

func TestReadinessProbeReportsFailingService(t *testing.T) {
	router := newHealthRouter(&pingStub{err: errors.New("connection refused")}, &queueStub{healthy: true})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Services, 2)
	assert.Equal(t, "postgres", resp.Services[0].Service)
	assert.Equal(t, "DOWN", resp.Services[0].Status)
	assert.Contains(t, resp.Services[0].Details, "connection refused")
	assert.Equal(t, "rabbitmq", resp.Services[1].Service)
	assert.Equal(t, "UP", resp.Services[1].Status)
}
