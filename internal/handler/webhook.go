// Package handler provides the HTTP endpoints of the WebSub pipeline.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/service"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/websub"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// WebhookHandler serves the hub-facing callback endpoint: GET for the
// verification handshake, POST for Atom notifications.
type WebhookHandler struct {
	ingest    *service.IngestService
	validator *validation.Validator
	collector *metrics.Collector
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(ingest *service.IngestService, validator *validation.Validator, collector *metrics.Collector) *WebhookHandler {
	return &WebhookHandler{
		ingest:    ingest,
		validator: validator,
		collector: collector,
	}
}

// HandleVerification handles GET /webhook hub challenge requests.
func (h *WebhookHandler) HandleVerification(c *gin.Context) {
	req := models.VerificationRequest{
		Mode:      c.Query("hub.mode"),
		Topic:     c.Query("hub.topic"),
		Challenge: c.Query("hub.challenge"),
	}

	body, err := websub.Verify(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, websub.ErrVerificationFailed) {
			status = http.StatusForbidden
		}
		logger.Log.Warn("Verification handshake rejected",
			zap.String("mode", req.Mode),
			zap.String("topic", req.Topic),
			zap.Error(err),
		)
		sendError(c, status, err.Error())
		return
	}

	logger.Log.Info("Verification handshake accepted",
		zap.String("mode", req.Mode),
		zap.String("topic", req.Topic),
	)
	c.String(http.StatusOK, body)
}

// HandleNotification handles POST /webhook Atom feed deliveries.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	start := time.Now()
	h.collector.RecordNotificationReceived()

	if err := h.validator.ValidatePayloadSize(c.Request.ContentLength); err != nil {
		sendError(c, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	// ContentLength is -1 for chunked deliveries, so the cap is also
	// enforced while reading.
	reader := c.Request.Body
	if limit := h.validator.MaxPayloadSize(); limit > 0 {
		reader = http.MaxBytesReader(c.Writer, reader, limit)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			sendError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("payload exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		sendError(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.ingest.VerifySignature(c.GetHeader("X-Hub-Signature"), body); err != nil {
		logger.Log.Warn("Notification signature rejected",
			zap.String("clientIp", c.ClientIP()),
			zap.Error(err),
		)
		sendError(c, http.StatusUnauthorized, "signature verification failed")
		return
	}

	accepted, err := h.ingest.Ingest(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrMalformedPayload) {
			logger.Log.Error("Malformed notification payload", zap.Error(err))
			sendError(c, http.StatusInternalServerError, "failed to parse notification")
			return
		}
		logger.Log.Error("Notification processing failed", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to process notification")
		return
	}

	h.collector.RecordEnrichmentPublished(len(accepted))
	h.collector.RecordIngestLatency(time.Since(start))

	logger.Log.Info("Notification processed",
		zap.Int("acceptedEntries", len(accepted)),
		zap.Duration("latency", time.Since(start)),
	)
	c.Status(http.StatusNoContent)
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, models.ErrorResponse{
		Timestamp: time.Now(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}
