// Package models contains the data models and DTOs for the YouTube WebSub pipeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus is the tri-state result of a hub subscribe/unsubscribe call.
type OutcomeStatus string

// OutcomeStatus constants define the possible hub call results.
const (
	OutcomeAccepted        OutcomeStatus = "accepted"
	OutcomeRejected        OutcomeStatus = "rejected"
	OutcomeTransportFailed OutcomeStatus = "transport_failed"
)

// Outcome carries the interpreted hub response for a subscribe or
// unsubscribe attempt. The subscription client returns an Outcome for every
// call; callers branch on Status instead of handling errors.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Outcome struct {
	ChannelID    string        `json:"channel_id"`
	Mode         string        `json:"mode"`
	Status       OutcomeStatus `json:"status"`
	StatusCode   int           `json:"response_code,omitempty"`
	ResponseBody string        `json:"response_text,omitempty"`
	Error        string        `json:"error,omitempty"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
}

// VerificationRequest is a hub challenge handshake request (GET /webhook).
type VerificationRequest struct {
	Mode      string
	Topic     string
	Challenge string
}

// SubscriptionStatus represents the state of a PubSubHubbub subscription.
type SubscriptionStatus string

// SubscriptionStatus constants define the possible states of a subscription.
const (
	SubscriptionStatusPending SubscriptionStatus = "PENDING"
	SubscriptionStatusActive  SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
	SubscriptionStatusFailed  SubscriptionStatus = "FAILED"
)

// Subscription tracks hub subscription state per channel.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Subscription struct {
	ID             uuid.UUID          `json:"id"`
	ChannelID      string             `json:"channel_id"`
	TopicURL       string             `json:"topic_url"`
	CallbackURL    string             `json:"callback_url"`
	Status         SubscriptionStatus `json:"status"`
	LeaseSeconds   int                `json:"lease_seconds"`
	LeaseExpiresAt *time.Time         `json:"lease_expires_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Notification is one accepted feed entry from an inbound hub notification.
// EventHash is the replay-dedup key: SHA-256 over video ID and the raw
// published timestamp.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Notification struct {
	ID         uuid.UUID `json:"id"`
	VideoID    string    `json:"video_id"`
	ChannelID  string    `json:"channel_id"`
	Published  string    `json:"published"`
	EventHash  string    `json:"event_hash"`
	ReceivedAt time.Time `json:"received_at"`
}

// EnrichmentMessage is the queue hand-off payload for asynchronous
// enrichment of a notified video.
type EnrichmentMessage struct {
	VideoID   string `json:"video_id"`
	ChannelID string `json:"channel_id"`
	Published string `json:"published"`
}

// RawVideo is the provider-shaped video metadata payload
// (snippet/statistics/contentDetails/status sections). Any section may be
// absent; the transformer degrades missing fields to defaults.
type RawVideo struct {
	ID             string            `json:"id"`
	Snippet        RawSnippet        `json:"snippet"`
	Statistics     RawStatistics     `json:"statistics"`
	ContentDetails RawContentDetails `json:"contentDetails"`
	Status         RawStatus         `json:"status"`
}

// RawSnippet holds the snippet section of a provider payload.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RawSnippet struct {
	Title                string                  `json:"title"`
	Description          string                  `json:"description"`
	PublishedAt          string                  `json:"publishedAt"`
	ChannelID            string                  `json:"channelId"`
	ChannelTitle         string                  `json:"channelTitle"`
	Thumbnails           map[string]RawThumbnail `json:"thumbnails"`
	Tags                 []string                `json:"tags"`
	CategoryID           string                  `json:"categoryId"`
	LiveBroadcastContent string                  `json:"liveBroadcastContent"`
}

// RawThumbnail is a single thumbnail variant.
type RawThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RawStatistics holds view/like/comment counters. The provider serializes
// these as decimal strings.
type RawStatistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

// RawContentDetails holds the contentDetails section.
type RawContentDetails struct {
	Duration string `json:"duration"`
}

// RawStatus holds the status section.
type RawStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

// VideoRecord is the canonical, storage-ready representation of a video.
// Created once per raw payload by the transformer and upserted keyed on
// VideoID.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoRecord struct {
	VideoID                string    `json:"video_id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	PublishedAt            time.Time `json:"published_at"`
	PublishedAtFallback    bool      `json:"published_at_fallback"`
	ChannelID              string    `json:"channel_id"`
	ChannelTitle           string    `json:"channel_title"`
	ThumbnailURL           *string   `json:"thumbnail_url"`
	ViewCount              int64     `json:"view_count"`
	LikeCount              int64     `json:"like_count"`
	CommentCount           int64     `json:"comment_count"`
	DurationSeconds        int       `json:"duration_seconds"`
	Tags                   []string  `json:"tags"`
	CategoryID             string    `json:"category_id"`
	LiveBroadcastContent   string    `json:"live_broadcast_content"`
	PrivacyStatus          string    `json:"privacy_status"`
	NotificationReceivedAt time.Time `json:"notification_received_at"`
	LastUpdatedAt          time.Time `json:"last_updated_at"`
	CreatedAt              time.Time `json:"created_at"`
}

// SubscriptionResponse is the envelope returned by the subscription
// trigger endpoints.
type SubscriptionResponse struct {
	Success bool     `json:"success"`
	Data    *Outcome `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ErrorResponse represents a structured JSON error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// ServiceHealth reports one collaborator's health probe result.
type ServiceHealth struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// HealthResponse aggregates collaborator health probes.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HealthResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds float64         `json:"uptime"`
	Services      []ServiceHealth `json:"services"`
	Timestamp     time.Time       `json:"timestamp"`
}
