package domain

import (
	"errors"
	"strings"
)

// ErrUnknownCapability is returned for capability names the gate does not know.
var ErrUnknownCapability = errors.New("unknown capture capability")

// Capability is a monitoring feature that requires consent.
type Capability string

const (
	CapabilityAutoTimer        Capability = "auto_timer"
	CapabilityScreenshot       Capability = "screenshot"
	CapabilityActivityTracking Capability = "activity_tracking"
	CapabilityScreenRecording  Capability = "screen_recording"
)

// Capabilities lists every capability in a stable order.
func Capabilities() []Capability {
	return []Capability{
		CapabilityAutoTimer,
		CapabilityScreenshot,
		CapabilityActivityTracking,
		CapabilityScreenRecording,
	}
}

// ParseCapability accepts the canonical name, with dashes or underscores.
func ParseCapability(value string) (Capability, error) {
	normalized := Capability(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, c := range Capabilities() {
		if c == normalized {
			return c, nil
		}
	}
	return "", ErrUnknownCapability
}
