// Package transform normalizes provider-shaped video metadata into
// canonical flat video records. All functions are pure; the caller supplies
// the clock.
package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
)

const maxTags = 50

var (
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	durationRegex     = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
)

// thumbnailPreference lists thumbnail variants from highest to lowest
// resolution.
var thumbnailPreference = []string{"maxres", "standard", "high", "medium", "default"}

// CleanText strips ASCII control characters and collapses whitespace runs
// to a single space, trimming both ends.
func CleanText(text string) string {
	text = controlCharsRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// ParseDuration converts an ISO-8601 "PT#H#M#S" duration to seconds. Any
// component may be absent; a non-matching string yields 0.
func ParseDuration(duration string) int {
	m := durationRegex.FindStringSubmatch(duration)
	if m == nil {
		return 0
	}
	hours := atoiOrZero(m[1])
	minutes := atoiOrZero(m[2])
	seconds := atoiOrZero(m[3])
	return hours*3600 + minutes*60 + seconds
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// SelectThumbnail returns the URL of the highest-resolution thumbnail
// variant present, or nil if none is.
func SelectThumbnail(thumbnails map[string]models.RawThumbnail) *string {
	for _, quality := range thumbnailPreference {
		if thumb, ok := thumbnails[quality]; ok && thumb.URL != "" {
			url := thumb.URL
			return &url
		}
	}
	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp with a literal "Z" UTC suffix
// or an explicit offset. On failure it falls back to now and reports the
// fallback so consumers can distinguish a guessed publish time from a real
// one.
func ParseTimestamp(value string, now time.Time) (time.Time, bool) {
	normalized := strings.Replace(value, "Z", "+00:00", 1)
	if ts, err := time.Parse(time.RFC3339, normalized); err == nil {
		return ts, false
	}
	return now.UTC(), true
}

// Transform converts a raw provider payload into a canonical video record.
// Total over any payload shape: absent sections degrade to defaults, never
// errors.
func Transform(raw *models.RawVideo, now time.Time) *models.VideoRecord {
	snippet := raw.Snippet

	publishedAt, fallback := ParseTimestamp(snippet.PublishedAt, now)

	tags := snippet.Tags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	liveBroadcast := snippet.LiveBroadcastContent
	if liveBroadcast == "" {
		liveBroadcast = "none"
	}
	privacy := raw.Status.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}

	return &models.VideoRecord{
		VideoID:                raw.ID,
		Title:                  CleanText(snippet.Title),
		Description:            CleanText(snippet.Description),
		PublishedAt:            publishedAt,
		PublishedAtFallback:    fallback,
		ChannelID:              snippet.ChannelID,
		ChannelTitle:           CleanText(snippet.ChannelTitle),
		ThumbnailURL:           SelectThumbnail(snippet.Thumbnails),
		ViewCount:              countOrZero(raw.Statistics.ViewCount),
		LikeCount:              countOrZero(raw.Statistics.LikeCount),
		CommentCount:           countOrZero(raw.Statistics.CommentCount),
		DurationSeconds:        ParseDuration(raw.ContentDetails.Duration),
		Tags:                   tags,
		CategoryID:             snippet.CategoryID,
		LiveBroadcastContent:   liveBroadcast,
		PrivacyStatus:          privacy,
		NotificationReceivedAt: now.UTC(),
		LastUpdatedAt:          now.UTC(),
		CreatedAt:              now.UTC(),
	}
}

func countOrZero(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
