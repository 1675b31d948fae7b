package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/transform"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// VideoSource fetches full video metadata for an enrichment message.
type VideoSource interface {
	FetchVideo(ctx context.Context, videoID string) (*models.RawVideo, error)
}

// VideoUpserter persists canonical video records.
type VideoUpserter interface {
	UpsertVideo(ctx context.Context, video *models.VideoRecord) error
}

// EnrichService consumes enrichment messages, normalizes the video
// metadata and upserts the canonical record.
type EnrichService struct {
	source    VideoSource
	upserter  VideoUpserter
	collector *metrics.Collector
	now       func() time.Time
}

// NewEnrichService creates an EnrichService. A nil source means no
// metadata backend is configured; records are then built from the
// notification fields alone.
func NewEnrichService(source VideoSource, upserter VideoUpserter, collector *metrics.Collector) *EnrichService {
	return &EnrichService{
		source:    source,
		upserter:  upserter,
		collector: collector,
		now:       time.Now,
	}
}

// Enrich processes one enrichment message end to end.
func (s *EnrichService) Enrich(ctx context.Context, msg models.EnrichmentMessage) error {
	raw, err := s.fetch(ctx, msg)
	if err != nil {
		return fmt.Errorf("fetch video %s: %w", msg.VideoID, err)
	}

	record := transform.Transform(raw, s.now())
	if record.ChannelID == "" {
		record.ChannelID = msg.ChannelID
	}

	if err := s.upserter.UpsertVideo(ctx, record); err != nil {
		return fmt.Errorf("upsert video %s: %w", msg.VideoID, err)
	}
	s.collector.RecordVideoUpserted()

	logger.Log.Info("Video record upserted",
		zap.String("videoId", record.VideoID),
		zap.String("channelId", record.ChannelID),
		zap.Bool("publishedAtFallback", record.PublishedAtFallback),
	)
	return nil
}

func (s *EnrichService) fetch(ctx context.Context, msg models.EnrichmentMessage) (*models.RawVideo, error) {
	if s.source != nil {
		return s.source.FetchVideo(ctx, msg.VideoID)
	}
	// No metadata backend: carry over what the notification gave us.
	return &models.RawVideo{
		ID: msg.VideoID,
		Snippet: models.RawSnippet{
			ChannelID:   msg.ChannelID,
			PublishedAt: msg.Published,
		},
	}, nil
}
