// Package websub implements the WebSub (PubSubHubbub) subscriber side:
// the hub subscription client and the callback verification handshake.
package websub

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/config"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// TopicPrefix is the canonical YouTube per-channel feed URL prefix. A
// verification request naming any other topic is rejected.
const TopicPrefix = "https://www.youtube.com/xml/feeds/videos.xml"

const (
	modeSubscribe   = "subscribe"
	modeUnsubscribe = "unsubscribe"

	requestTimeout = 10 * time.Second
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues subscribe/unsubscribe requests against the hub. Every call
// is a single bounded attempt whose result is folded into a tri-state
// Outcome; the client never surfaces a Go error to its caller.
type Client struct {
	http         HTTPClient
	hubURL       string
	domain       string
	secret       string
	leaseSeconds int
	now          func() time.Time
}

// NewClient creates a hub client from the WebSub configuration. A nil
// httpClient falls back to a default client bounded by the request timeout.
func NewClient(cfg *config.WebSubConfig, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		http:         httpClient,
		hubURL:       cfg.HubURL,
		domain:       cfg.Domain,
		secret:       cfg.Secret,
		leaseSeconds: cfg.LeaseSeconds,
		now:          time.Now,
	}
}

// TopicURL builds the canonical per-channel feed URL.
func (c *Client) TopicURL(channelID string) string {
	return TopicPrefix + "?channel_id=" + url.QueryEscape(channelID)
}

// CallbackURL builds the publicly reachable webhook endpoint. Plain http is
// used only for the literal domain "localhost".
func (c *Client) CallbackURL() string {
	scheme := "https"
	if c.domain == "localhost" {
		scheme = "http"
	}
	return scheme + "://" + c.domain + "/webhook"
}

// LeaseSeconds reports the lease requested on subscribe.
func (c *Client) LeaseSeconds() int {
	return c.leaseSeconds
}

// Subscribe requests a hub subscription for the channel's feed.
func (c *Client) Subscribe(ctx context.Context, channelID string) models.Outcome {
	return c.request(ctx, modeSubscribe, channelID)
}

// Unsubscribe cancels the hub subscription for the channel's feed.
func (c *Client) Unsubscribe(ctx context.Context, channelID string) models.Outcome {
	return c.request(ctx, modeUnsubscribe, channelID)
}

func (c *Client) request(ctx context.Context, mode, channelID string) models.Outcome {
	outcome := models.Outcome{
		ChannelID: channelID,
		Mode:      mode,
	}

	topicURL := c.TopicURL(channelID)
	callbackURL := c.CallbackURL()

	form := url.Values{}
	form.Set("hub.mode", mode)
	form.Set("hub.topic", topicURL)
	form.Set("hub.callback", callbackURL)
	if mode == modeSubscribe {
		form.Set("hub.lease_seconds", strconv.Itoa(c.leaseSeconds))
	}
	if c.secret != "" {
		form.Set("hub.secret", c.secret)
	}

	logger.Log.Info("Sending hub request",
		zap.String("mode", mode),
		zap.String("channelId", channelID),
		zap.String("topicUrl", topicURL),
		zap.String("callbackUrl", callbackURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		outcome.Status = models.OutcomeTransportFailed
		outcome.Error = err.Error()
		return outcome
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Log.Error("Hub request transport failure",
			zap.String("mode", mode),
			zap.String("channelId", channelID),
			zap.Error(err),
		)
		outcome.Status = models.OutcomeTransportFailed
		outcome.Error = err.Error()
		return outcome
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Status = models.OutcomeTransportFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.StatusCode = resp.StatusCode
	outcome.ResponseBody = string(body)

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusNoContent:
		outcome.Status = models.OutcomeAccepted
		if mode == modeSubscribe {
			expiresAt := c.now().Add(time.Duration(c.leaseSeconds) * time.Second)
			outcome.ExpiresAt = &expiresAt
		}
		logger.Log.Info("Hub request accepted",
			zap.String("mode", mode),
			zap.String("channelId", channelID),
			zap.Int("statusCode", resp.StatusCode),
		)
	default:
		outcome.Status = models.OutcomeRejected
		logger.Log.Warn("Hub request rejected",
			zap.String("mode", mode),
			zap.String("channelId", channelID),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("responseBody", outcome.ResponseBody),
		)
	}

	return outcome
}
