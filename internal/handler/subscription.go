package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/websub"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// SubscriptionStore persists hub subscription state per channel.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscriptionByChannelID(ctx context.Context, channelID string) (*models.Subscription, error)
}

// SubscriptionHandler triggers hub subscribe/unsubscribe calls for a
// channel and records the resulting state.
type SubscriptionHandler struct {
	client    *websub.Client
	store     SubscriptionStore
	validator *validation.Validator
	collector *metrics.Collector
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(client *websub.Client, store SubscriptionStore, validator *validation.Validator, collector *metrics.Collector) *SubscriptionHandler {
	return &SubscriptionHandler{
		client:    client,
		store:     store,
		validator: validator,
		collector: collector,
	}
}

// Subscribe handles POST /subscriptions/subscribe/:channelID. The hub call
// outcome is reported in the response data even when the hub rejects the
// request; success is false only for validation or persistence failures.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	h.trigger(c, true)
}

// Unsubscribe handles POST /subscriptions/unsubscribe/:channelID.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	h.trigger(c, false)
}

func (h *SubscriptionHandler) trigger(c *gin.Context, subscribe bool) {
	channelID := c.Param("channelID")
	if err := h.validator.ValidateChannelID(channelID); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	var outcome models.Outcome
	if subscribe {
		outcome = h.client.Subscribe(c.Request.Context(), channelID)
	} else {
		outcome = h.client.Unsubscribe(c.Request.Context(), channelID)
	}
	h.collector.RecordSubscribeRequest(outcome.Mode, string(outcome.Status))

	sub := &models.Subscription{
		ChannelID:    channelID,
		TopicURL:     h.client.TopicURL(channelID),
		CallbackURL:  h.client.CallbackURL(),
		LeaseSeconds: h.client.LeaseSeconds(),
	}
	// A non-accepted outcome never changes the lease state the hub holds,
	// so it is recorded as FAILED for both modes.
	switch {
	case outcome.Status != models.OutcomeAccepted:
		sub.Status = models.SubscriptionStatusFailed
	case subscribe:
		sub.Status = models.SubscriptionStatusActive
		sub.LeaseExpiresAt = outcome.ExpiresAt
	default:
		sub.Status = models.SubscriptionStatusExpired
	}

	if err := h.store.UpsertSubscription(c.Request.Context(), sub); err != nil {
		logger.Log.Error("Failed to persist subscription state",
			zap.String("channelId", channelID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.SubscriptionResponse{
			Success: false,
			Message: "failed to persist subscription state",
		})
		return
	}

	c.JSON(http.StatusOK, models.SubscriptionResponse{
		Success: true,
		Data:    &outcome,
	})
}

// GetSubscription handles GET /subscriptions/status/:channelID.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	channelID := c.Param("channelID")
	if err := h.validator.ValidateChannelID(channelID); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.store.GetSubscriptionByChannelID(c.Request.Context(), channelID)
	if err != nil {
		sendError(c, http.StatusNotFound, "subscription not found")
		return
	}
	c.JSON(http.StatusOK, sub)
}
