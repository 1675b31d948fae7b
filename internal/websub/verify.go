package websub

import (
	"errors"
	"strings"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
)

// Verification handshake failures, mapped to HTTP statuses at the handler
// boundary.
var (
	// ErrInvalidTopic is returned when the topic does not name a supported feed.
	ErrInvalidTopic = errors.New("invalid topic parameter")

	// ErrMissingChallenge is returned when a subscribe verification lacks hub.challenge.
	ErrMissingChallenge = errors.New("missing challenge parameter")

	// ErrVerificationFailed is returned for an unrecognized hub.mode.
	ErrVerificationFailed = errors.New("verification failed")
)

// UnsubscribedBody is the plain-text body acknowledging unsubscribe
// verification.
const UnsubscribedBody = "Unsubscribed successfully."

// Verify runs the hub challenge handshake state machine over a single
// verification request and returns the plain-text response body. The
// subscribe path echoes the challenge byte-for-byte; that exact echo is
// what proves ownership of the callback URL to the hub. Idempotent and
// side-effect-free.
func Verify(req models.VerificationRequest) (string, error) {
	if req.Topic != "" && !strings.HasPrefix(req.Topic, TopicPrefix) {
		return "", ErrInvalidTopic
	}

	switch req.Mode {
	case modeSubscribe:
		if req.Challenge == "" {
			return "", ErrMissingChallenge
		}
		return req.Challenge, nil
	case modeUnsubscribe:
		return UnsubscribedBody, nil
	default:
		return "", ErrVerificationFailed
	}
}
