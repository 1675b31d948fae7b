// Package service implements the notification ingestion and enrichment
// pipeline stages.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/parser"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// ErrMalformedPayload marks a notification body that could not be parsed
// as an Atom feed.
var ErrMalformedPayload = errors.New("malformed notification payload")

// ErrInvalidSignature marks a notification whose X-Hub-Signature header
// does not match the shared secret.
var ErrInvalidSignature = errors.New("invalid notification signature")

// NotificationStore records notifications and reports whether each one
// was seen for the first time.
type NotificationStore interface {
	RecordNotification(ctx context.Context, n *models.Notification) (bool, error)
}

// EnrichmentPublisher hands notification entries to the enrichment queue.
type EnrichmentPublisher interface {
	PublishEnrichment(ctx context.Context, msg models.EnrichmentMessage) error
}

// IngestService turns raw hub notification bodies into stored
// notifications and enrichment messages.
type IngestService struct {
	store     NotificationStore
	publisher EnrichmentPublisher
	validator *validation.Validator
	collector *metrics.Collector
	secret    string
	now       func() time.Time
}

// NewIngestService creates an IngestService. An empty secret disables
// signature verification.
func NewIngestService(store NotificationStore, publisher EnrichmentPublisher, validator *validation.Validator, collector *metrics.Collector, secret string) *IngestService {
	return &IngestService{
		store:     store,
		publisher: publisher,
		validator: validator,
		collector: collector,
		secret:    secret,
		now:       time.Now,
	}
}

// VerifySignature checks the X-Hub-Signature header against the payload.
// The hub sends "sha1=<hex hmac>" computed with the subscription secret.
func (s *IngestService) VerifySignature(signature string, body []byte) error {
	if s.secret == "" {
		return nil
	}
	if len(signature) < 6 || signature[:5] != "sha1=" {
		return fmt.Errorf("%w: missing sha1 prefix", ErrInvalidSignature)
	}

	mac := hmac.New(sha1.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature[5:]), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeNotificationHash derives the replay-detection key for an entry.
// Two deliveries of the same video event always produce the same hash.
func ComputeNotificationHash(videoID, published string) string {
	h := sha256.Sum256([]byte(videoID + published))
	return hex.EncodeToString(h[:])
}

// Ingest parses a notification body, records each entry once and enqueues
// first-seen entries for enrichment. It returns the video IDs accepted in
// this call. Entries that fail individually are skipped without failing
// the batch; only an unparseable body or a storage failure is an error.
func (s *IngestService) Ingest(ctx context.Context, body []byte) ([]string, error) {
	feed, err := parser.ParseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(feed.Deleted) > 0 {
		logger.Log.Info("Ignoring deleted-entry tombstones",
			zap.Int("count", len(feed.Deleted)),
		)
	}

	var accepted []string
	for _, entry := range feed.Entries {
		if entry.VideoID == "" || !s.validator.IsValidVideoID(entry.VideoID) {
			s.collector.RecordEntrySkipped()
			logger.Log.Warn("Skipping entry with invalid video ID",
				zap.String("videoId", entry.VideoID),
				zap.String("channelId", entry.ChannelID),
			)
			continue
		}

		n := &models.Notification{
			ID:         uuid.New(),
			VideoID:    entry.VideoID,
			ChannelID:  entry.ChannelID,
			Published:  entry.Published,
			EventHash:  ComputeNotificationHash(entry.VideoID, entry.Published),
			ReceivedAt: s.now(),
		}

		firstSeen, err := s.store.RecordNotification(ctx, n)
		if err != nil {
			return accepted, fmt.Errorf("record notification: %w", err)
		}
		if !firstSeen {
			s.collector.RecordDuplicate()
			logger.Log.Info("Duplicate notification, skipping enrichment",
				zap.String("videoId", entry.VideoID),
				zap.String("eventHash", n.EventHash),
			)
			continue
		}

		msg := models.EnrichmentMessage{
			VideoID:   entry.VideoID,
			ChannelID: entry.ChannelID,
			Published: entry.Published,
		}
		if err := s.publisher.PublishEnrichment(ctx, msg); err != nil {
			// The notification is stored; enrichment can be replayed later.
			logger.Log.Error("Failed to enqueue enrichment",
				zap.Error(err),
				zap.String("videoId", entry.VideoID),
			)
		}

		accepted = append(accepted, entry.VideoID)
	}

	return accepted, nil
}
