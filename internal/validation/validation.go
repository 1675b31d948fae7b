// Package validation provides boundary checks on identifiers and payloads.
package validation

import (
	"fmt"
	"regexp"
)

var (
	videoIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
)

// Validator validates inbound identifiers and notification payload sizes.
type Validator struct {
	maxPayloadSize    int64
	validationEnabled bool
}

// New creates a Validator. When enabled is false all checks pass.
func New(maxPayloadSize int64, enabled bool) *Validator {
	return &Validator{
		maxPayloadSize:    maxPayloadSize,
		validationEnabled: enabled,
	}
}

// ValidateChannelID checks the channel ID format (UC + 22 characters).
func (v *Validator) ValidateChannelID(channelID string) error {
	if !v.validationEnabled {
		return nil
	}
	if !channelIDRegex.MatchString(channelID) {
		return fmt.Errorf("invalid channel ID format: %s", channelID)
	}
	return nil
}

// ValidatePayloadSize checks a notification body against the configured cap.
func (v *Validator) ValidatePayloadSize(size int64) error {
	if !v.validationEnabled {
		return nil
	}
	if size > v.maxPayloadSize {
		return fmt.Errorf("payload exceeds maximum size of %d bytes", v.maxPayloadSize)
	}
	return nil
}

// MaxPayloadSize returns the configured payload cap, or 0 when validation
// is disabled.
func (v *Validator) MaxPayloadSize() int64 {
	if !v.validationEnabled {
		return 0
	}
	return v.maxPayloadSize
}

// IsValidVideoID reports whether videoID matches the 11-character format.
func (v *Validator) IsValidVideoID(videoID string) bool {
	if !v.validationEnabled {
		return true
	}
	return videoIDRegex.MatchString(videoID)
}

// IsValidChannelID reports whether channelID matches the UC-prefixed format.
func (v *Validator) IsValidChannelID(channelID string) bool {
	if !v.validationEnabled {
		return true
	}
	return channelIDRegex.MatchString(channelID)
}
