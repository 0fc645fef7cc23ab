// Package session negotiates the hardware audio session configuration:
// sample rate, buffer duration and category. The hardware itself sits
// behind the Hardware interface; the negotiator only applies policy and
// layered fallbacks on top of it.
package session

import "time"

// Category is the routing category of the hardware session.
type Category string

const (
	// CategoryPlayback routes output-only audio and keeps the session
	// eligible for system transport controls.
	CategoryPlayback Category = "playback"
)

// ActivationOptions tunes how the session is (re)activated.
type ActivationOptions struct {
	// Relaxed drops optional activation flags; used as a retry after a
	// strict activation fails.
	Relaxed bool
}

// Hardware is the settable surface of the platform audio session.
// Implementations may refuse any setter; the negotiator falls back.
type Hardware interface {
	// SampleRate returns the currently active hardware rate.
	SampleRate() float64

	// SetPreferredSampleRate requests a hardware rate. A nil return means
	// the request was accepted, not that the hardware complied exactly.
	SetPreferredSampleRate(rate float64) error

	// SetPreferredBufferDuration requests an IO buffer duration.
	SetPreferredBufferDuration(d time.Duration) error

	// SetCategory sets the routing category.
	SetCategory(c Category) error

	// SetActive activates or deactivates the session.
	SetActive(active bool, opts ActivationOptions) error
}

// Config is the negotiated hardware state. Mutated only by the
// negotiator; read-only everywhere else.
type Config struct {
	SampleRate     float64       `json:"sampleRate"`
	BufferDuration time.Duration `json:"bufferDuration"`
	Category       Category      `json:"category"`

	// RateFallbacks counts the ladder rungs consumed by the negotiation
	// that produced this config; 0 means the exact target was accepted.
	RateFallbacks int `json:"rateFallbacks"`
}
