// Package repository provides database operations for the WebSub pipeline.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
)

// Repository handles all database operations for the WebSub pipeline.
type Repository struct {
	db *pgxpool.Pool
}

// New creates a new Repository instance with the provided database connection pool.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertVideo inserts or updates the canonical record for a video, keyed on
// video_id. Re-applying the same payload never creates a duplicate row.
func (r *Repository) UpsertVideo(ctx context.Context, video *models.VideoRecord) error {
	query := `
		INSERT INTO websub.videos
		(video_id, title, description, published_at, published_at_fallback,
		 channel_id, channel_title, thumbnail_url, view_count, like_count,
		 comment_count, duration_seconds, tags, category_id,
		 live_broadcast_content, privacy_status, notification_received_at,
		 last_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			published_at = EXCLUDED.published_at,
			published_at_fallback = EXCLUDED.published_at_fallback,
			channel_title = EXCLUDED.channel_title,
			thumbnail_url = EXCLUDED.thumbnail_url,
			view_count = EXCLUDED.view_count,
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			duration_seconds = EXCLUDED.duration_seconds,
			tags = EXCLUDED.tags,
			category_id = EXCLUDED.category_id,
			live_broadcast_content = EXCLUDED.live_broadcast_content,
			privacy_status = EXCLUDED.privacy_status,
			notification_received_at = EXCLUDED.notification_received_at,
			last_updated_at = EXCLUDED.last_updated_at
	`
	_, err := r.db.Exec(ctx, query,
		video.VideoID, video.Title, video.Description, video.PublishedAt,
		video.PublishedAtFallback, video.ChannelID, video.ChannelTitle,
		video.ThumbnailURL, video.ViewCount, video.LikeCount,
		video.CommentCount, video.DurationSeconds, video.Tags,
		video.CategoryID, video.LiveBroadcastContent, video.PrivacyStatus,
		video.NotificationReceivedAt, video.LastUpdatedAt, video.CreatedAt,
	)
	return err
}

// GetVideoByID retrieves a canonical video record.
func (r *Repository) GetVideoByID(ctx context.Context, videoID string) (*models.VideoRecord, error) {
	query := `
		SELECT video_id, title, description, published_at, published_at_fallback,
		       channel_id, channel_title, thumbnail_url, view_count, like_count,
		       comment_count, duration_seconds, tags, category_id,
		       live_broadcast_content, privacy_status, notification_received_at,
		       last_updated_at, created_at
		FROM websub.videos
		WHERE video_id = $1
	`
	var video models.VideoRecord
	err := r.db.QueryRow(ctx, query, videoID).Scan(
		&video.VideoID, &video.Title, &video.Description, &video.PublishedAt,
		&video.PublishedAtFallback, &video.ChannelID, &video.ChannelTitle,
		&video.ThumbnailURL, &video.ViewCount, &video.LikeCount,
		&video.CommentCount, &video.DurationSeconds, &video.Tags,
		&video.CategoryID, &video.LiveBroadcastContent, &video.PrivacyStatus,
		&video.NotificationReceivedAt, &video.LastUpdatedAt, &video.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// RecordNotification inserts a notification keyed by its event hash and
// reports whether the row was new. A false return marks a hub redelivery;
// the caller must not trigger downstream work again.
func (r *Repository) RecordNotification(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO websub.notifications
		(id, video_id, channel_id, published, event_hash, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_hash) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		n.ID, n.VideoID, n.ChannelID, n.Published, n.EventHash, n.ReceivedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertSubscription records the latest hub subscription state for a
// channel, keyed on channel_id.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	query := `
		INSERT INTO websub.subscriptions
		(id, channel_id, topic_url, callback_url, status, lease_seconds, lease_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (channel_id) DO UPDATE SET
			topic_url = EXCLUDED.topic_url,
			callback_url = EXCLUDED.callback_url,
			status = EXCLUDED.status,
			lease_seconds = EXCLUDED.lease_seconds,
			lease_expires_at = EXCLUDED.lease_expires_at,
			updated_at = EXCLUDED.updated_at
	`
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.ChannelID, sub.TopicURL, sub.CallbackURL, sub.Status,
		sub.LeaseSeconds, sub.LeaseExpiresAt, now,
	)
	return err
}

// GetSubscriptionByChannelID retrieves the subscription state for a channel.
func (r *Repository) GetSubscriptionByChannelID(ctx context.Context, channelID string) (*models.Subscription, error) {
	query := `
		SELECT id, channel_id, topic_url, callback_url, status, lease_seconds,
		       lease_expires_at, created_at, updated_at
		FROM websub.subscriptions
		WHERE channel_id = $1
	`
	var sub models.Subscription
	err := r.db.QueryRow(ctx, query, channelID).Scan(
		&sub.ID, &sub.ChannelID, &sub.TopicURL, &sub.CallbackURL,
		&sub.Status, &sub.LeaseSeconds, &sub.LeaseExpiresAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Ping verifies database connectivity, used by health probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
