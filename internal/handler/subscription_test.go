package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/config"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/websub"
)

const testChannelID = "UCuAXFkgsw1L7xaCfnd5JJOw"

type hubStub struct {
	statusCode int
	body       string
	err        error
}

func (h *hubStub) Do(_ *http.Request) (*http.Response, error) {
	if h.err != nil {
		return nil, h.err
	}
	return &http.Response{
		StatusCode: h.statusCode,
		Body:       io.NopCloser(strings.NewReader(h.body)),
	}, nil
}

type subStore struct {
	upserted []*models.Subscription
	byID     map[string]*models.Subscription
}

func (s *subStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	s.upserted = append(s.upserted, sub)
	return nil
}

func (s *subStore) GetSubscriptionByChannelID(_ context.Context, channelID string) (*models.Subscription, error) {
	if sub, ok := s.byID[channelID]; ok {
		return sub, nil
	}
	return nil, context.DeadlineExceeded
}

func newSubscriptionRouter(hub *hubStub) (*gin.Engine, *subStore) {
	cfg := &config.WebSubConfig{
		HubURL:       "https://pubsubhubbub.appspot.com/",
		Domain:       "example.com",
		LeaseSeconds: 432000,
	}
	client := websub.NewClient(cfg, hub)
	store := &subStore{byID: make(map[string]*models.Subscription)}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	h := NewSubscriptionHandler(client, store, validation.New(1048576, true), collector)

	// Mirrors the route layout of cmd/api.
	router := gin.New()
	api := router.Group("/subscriptions")
	api.POST("/subscribe/:channelID", h.Subscribe)
	api.POST("/unsubscribe/:channelID", h.Unsubscribe)
	api.GET("/status/:channelID", h.GetSubscription)
	return router, store
}

func TestSubscribeAccepted(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{statusCode: http.StatusNoContent})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/subscribe/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.OutcomeAccepted, resp.Data.Status)
	assert.NotNil(t, resp.Data.ExpiresAt)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, models.SubscriptionStatusActive, store.upserted[0].Status)
	assert.NotNil(t, store.upserted[0].LeaseExpiresAt)
}

func TestSubscribeRejectedStillSucceeds(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{
		statusCode: http.StatusBadRequest,
		body:       "invalid topic",
	})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/subscribe/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The hub refusal is data, not an endpoint failure.
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.OutcomeRejected, resp.Data.Status)
	assert.Equal(t, http.StatusBadRequest, resp.Data.StatusCode)
	assert.Equal(t, "invalid topic", resp.Data.ResponseBody)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, models.SubscriptionStatusFailed, store.upserted[0].Status)
}

func TestSubscribeTransportFailure(t *testing.T) {
	router, _ := newSubscriptionRouter(&hubStub{err: io.ErrUnexpectedEOF})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/subscribe/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.OutcomeTransportFailed, resp.Data.Status)
	assert.NotEmpty(t, resp.Data.Error)
}

func TestSubscribeInvalidChannelID(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{statusCode: http.StatusNoContent})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/subscribe/not-a-channel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.upserted)
}

func TestUnsubscribe(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{statusCode: http.StatusAccepted})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/unsubscribe/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "unsubscribe", resp.Data.Mode)
	assert.Nil(t, resp.Data.ExpiresAt)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, models.SubscriptionStatusExpired, store.upserted[0].Status)
}

func TestUnsubscribeRejectedRecordsFailure(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{
		statusCode: http.StatusBadRequest,
		body:       "unknown callback",
	})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/unsubscribe/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.OutcomeRejected, resp.Data.Status)

	// The hub still holds the lease, so the store must not claim EXPIRED.
	require.Len(t, store.upserted, 1)
	assert.Equal(t, models.SubscriptionStatusFailed, store.upserted[0].Status)
}

func TestGetSubscription(t *testing.T) {
	router, store := newSubscriptionRouter(&hubStub{statusCode: http.StatusNoContent})
	store.byID[testChannelID] = &models.Subscription{
		ChannelID: testChannelID,
		Status:    models.SubscriptionStatusActive,
	}

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/status/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var sub models.Subscription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, testChannelID, sub.ChannelID)
}

func TestGetSubscriptionNotFound(t *testing.T) {
	router, _ := newSubscriptionRouter(&hubStub{statusCode: http.StatusNoContent})

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/status/"+testChannelID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
