package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

func init() {
	_ = logger.Init("error", "")
}

type fakeStore struct {
	seen     map[string]bool
	recorded []*models.Notification
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (f *fakeStore) RecordNotification(_ context.Context, n *models.Notification) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[n.EventHash] {
		return false, nil
	}
	f.seen[n.EventHash] = true
	f.recorded = append(f.recorded, n)
	return true, nil
}

type fakePublisher struct {
	published []models.EnrichmentMessage
	err       error
}

func (f *fakePublisher) PublishEnrichment(_ context.Context, msg models.EnrichmentMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

const notificationBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>yt:video:dQw4w9WgXcQ</id>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <yt:channelId>UCuAXFkgsw1L7xaCfnd5JJOw</yt:channelId>
    <title>Test Video</title>
    <published>2024-03-15T10:00:00+00:00</published>
  </entry>
</feed>`

const mixedBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <yt:channelId>UCuAXFkgsw1L7xaCfnd5JJOw</yt:channelId>
    <published>2024-03-15T10:00:00+00:00</published>
  </entry>
  <entry>
    <yt:channelId>UCuAXFkgsw1L7xaCfnd5JJOw</yt:channelId>
    <published>2024-03-15T11:00:00+00:00</published>
  </entry>
  <entry>
    <yt:videoId>9bZkp7q19f0</yt:videoId>
    <yt:channelId>UCuAXFkgsw1L7xaCfnd5JJOw</yt:channelId>
    <published>2024-03-15T12:00:00+00:00</published>
  </entry>
</feed>`

func newIngestService(store NotificationStore, pub EnrichmentPublisher, secret string) *IngestService {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return NewIngestService(store, pub, validation.New(1048576, true), collector, secret)
}

func TestIngestSingleEntry(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newIngestService(store, pub, "")

	accepted, err := svc.Ingest(context.Background(), []byte(notificationBody))
	require.NoError(t, err)

	assert.Equal(t, []string{"dQw4w9WgXcQ"}, accepted)
	require.Len(t, store.recorded, 1)
	assert.Equal(t, "dQw4w9WgXcQ", store.recorded[0].VideoID)
	assert.Equal(t, "UCuAXFkgsw1L7xaCfnd5JJOw", store.recorded[0].ChannelID)
	assert.NotEmpty(t, store.recorded[0].EventHash)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "dQw4w9WgXcQ", pub.published[0].VideoID)
	assert.Equal(t, "2024-03-15T10:00:00+00:00", pub.published[0].Published)
}

func TestIngestDuplicateDelivery(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newIngestService(store, pub, "")

	first, err := svc.Ingest(context.Background(), []byte(notificationBody))
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Hub redelivery of the same event must not re-enqueue enrichment.
	second, err := svc.Ingest(context.Background(), []byte(notificationBody))
	require.NoError(t, err)

	assert.Empty(t, second)
	assert.Len(t, store.recorded, 1)
	assert.Len(t, pub.published, 1)
}

func TestIngestSkipsInvalidEntries(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newIngestService(store, pub, "")

	accepted, err := svc.Ingest(context.Background(), []byte(mixedBody))
	require.NoError(t, err)

	// The entry without a videoId is skipped, the other two survive.
	assert.Equal(t, []string{"dQw4w9WgXcQ", "9bZkp7q19f0"}, accepted)
	assert.Len(t, pub.published, 2)
}

func TestIngestMalformedBody(t *testing.T) {
	svc := newIngestService(newFakeStore(), &fakePublisher{}, "")

	_, err := svc.Ingest(context.Background(), []byte("this is not xml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestIngestStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	svc := newIngestService(store, &fakePublisher{}, "")

	_, err := svc.Ingest(context.Background(), []byte(notificationBody))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record notification")
}

func TestIngestPublishFailureStillAccepts(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newIngestService(store, pub, "")

	accepted, err := svc.Ingest(context.Background(), []byte(notificationBody))
	require.NoError(t, err)

	// The notification is persisted even when the queue is down.
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, accepted)
	assert.Len(t, store.recorded, 1)
}

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(notificationBody)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	valid := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		secret    string
		signature string
		wantErr   bool
	}{
		{"valid signature", secret, valid, false},
		{"wrong secret", "other-secret", valid, true},
		{"missing prefix", secret, hex.EncodeToString(mac.Sum(nil)), true},
		{"empty signature", secret, "", true},
		{"garbage signature", secret, "sha1=deadbeef", true},
		{"verification disabled", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newIngestService(newFakeStore(), &fakePublisher{}, tt.secret)
			err := svc.VerifySignature(tt.signature, body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestComputeNotificationHash(t *testing.T) {
	h1 := ComputeNotificationHash("dQw4w9WgXcQ", "2024-03-15T10:00:00+00:00")
	h2 := ComputeNotificationHash("dQw4w9WgXcQ", "2024-03-15T10:00:00+00:00")
	h3 := ComputeNotificationHash("dQw4w9WgXcQ", "2024-03-15T11:00:00+00:00")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
