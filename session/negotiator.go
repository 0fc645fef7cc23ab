package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaban/hifi/format"
)

// Fallback ladders. Rates are tried in order after the exact target
// fails; the DoP ladder stays inside rates whose carriers can frame a
// one-bit stream before degrading to commodity rates.
var dopRateLadder = []float64{176400, 88200, 96000, 48000, 44100}

// Buffer durations in descending stability order. 40 ms is the baseline
// for glitch-free rendering on battery-throttled hosts.
var bufferLadder = []time.Duration{
	40 * time.Millisecond,
	30 * time.Millisecond,
	23 * time.Millisecond,
	20 * time.Millisecond,
}

// Negotiator applies session policy on top of a Hardware implementation.
type Negotiator struct {
	hw  Hardware
	log *slog.Logger

	// preferredBuffer may be written from the preference-change path while
	// a load negotiates on another goroutine.
	mu              sync.Mutex
	preferredBuffer time.Duration

	current Config
	active  bool
}

// NewNegotiator wraps hw. A nil logger selects slog.Default.
func NewNegotiator(hw Hardware, log *slog.Logger) *Negotiator {
	if log == nil {
		log = slog.Default()
	}
	return &Negotiator{hw: hw, log: log}
}

// Current returns the last negotiated configuration.
func (n *Negotiator) Current() Config { return n.current }

// SetPreferredBuffer sets a user-supplied IO buffer duration, tried ahead
// of the built-in ladder on the next Configure. Zero restores the ladder
// baseline.
func (n *Negotiator) SetPreferredBuffer(d time.Duration) {
	n.mu.Lock()
	n.preferredBuffer = d
	n.mu.Unlock()
}

// Configure negotiates the session for the given target rate.
//
// Reconfiguration is skipped entirely when the requested rate is within
// 1 Hz of the active rate and the stream is not one-bit; renegotiating an
// already-correct session is itself a glitch source. Otherwise the session
// is deactivated, the rate and buffer ladders are walked, and the session
// is reactivated (once strictly, once relaxed). A rate mismatch after all
// of that is logged as a warning, not an error: exact hardware compliance
// is never guaranteed.
func (n *Negotiator) Configure(targetRate float64, oneBit, useDoP bool) (Config, error) {
	activeRate := n.hw.SampleRate()
	if n.active && !oneBit && format.SameRate(targetRate, activeRate) {
		n.log.Debug("session reconfiguration skipped",
			"targetRate", targetRate, "activeRate", activeRate)
		return n.current, nil
	}

	if err := n.hw.SetActive(false, ActivationOptions{}); err != nil {
		// Deactivation failures are not fatal; keep negotiating.
		n.log.Debug("session deactivation refused", "error", err)
	}

	if err := n.hw.SetCategory(CategoryPlayback); err != nil {
		n.log.Warn("session category refused", "error", err)
	}

	requestedRate, rungs, rateErr := n.negotiateRate(targetRate, useDoP)
	bufferDur := n.negotiateBuffer()

	if err := n.activate(); err != nil {
		return n.current, err
	}
	n.active = true

	actual := n.hw.SampleRate()
	if rateErr == nil && !format.SameRate(actual, requestedRate) {
		// Compare against the last successfully requested rate, not the
		// original target; the ladder may have legitimately moved us.
		n.log.Warn("hardware rate differs from requested",
			"requested", requestedRate, "actual", actual)
	}

	n.current = Config{
		SampleRate:     actual,
		BufferDuration: bufferDur,
		Category:       CategoryPlayback,
		RateFallbacks:  rungs,
	}
	if rateErr != nil {
		return n.current, rateErr
	}
	return n.current, nil
}

// negotiateRate walks the rate ladder and returns the last rate the
// hardware accepted, plus the number of ladder rungs consumed before
// acceptance. When every rung fails the hardware keeps whatever rate it
// already has and ErrConfiguration is reported.
func (n *Negotiator) negotiateRate(target float64, useDoP bool) (float64, int, error) {
	if target > 0 {
		if err := n.hw.SetPreferredSampleRate(target); err == nil {
			return target, 0, nil
		}
		n.log.Debug("exact rate refused", "rate", target)
	}

	rungs := 0
	if useDoP {
		for _, rate := range dopRateLadder {
			if format.SameRate(rate, target) {
				continue
			}
			rungs++
			if err := n.hw.SetPreferredSampleRate(rate); err == nil {
				n.log.Debug("fallback rate accepted", "rate", rate, "rungs", rungs)
				return rate, rungs, nil
			}
		}
	}

	kept := n.hw.SampleRate()
	return kept, rungs, fmt.Errorf("%w: no rate accepted, hardware stays at %v Hz",
		ErrConfiguration, kept)
}

// negotiateBuffer tries the user's preferred duration first, then walks
// the ladder; buffer refusals are never fatal.
func (n *Negotiator) negotiateBuffer() time.Duration {
	n.mu.Lock()
	preferred := n.preferredBuffer
	n.mu.Unlock()

	if preferred > 0 {
		if err := n.hw.SetPreferredBufferDuration(preferred); err == nil {
			return preferred
		}
		n.log.Debug("preferred buffer duration refused", "duration", preferred)
	}
	for _, d := range bufferLadder {
		if err := n.hw.SetPreferredBufferDuration(d); err == nil {
			return d
		}
		n.log.Debug("buffer duration refused", "duration", d)
	}
	return 0
}

// activate reactivates the session, retrying once with relaxed options.
func (n *Negotiator) activate() error {
	if err := n.hw.SetActive(true, ActivationOptions{}); err == nil {
		return nil
	}
	if err := n.hw.SetActive(true, ActivationOptions{Relaxed: true}); err != nil {
		return fmt.Errorf("%w: %v", ErrActivation, err)
	}
	n.log.Warn("session activated with relaxed options")
	return nil
}

// Suspend deactivates the session without renegotiating, so system
// transport indicators reflect a paused state.
func (n *Negotiator) Suspend() error {
	if err := n.hw.SetActive(false, ActivationOptions{}); err != nil {
		return err
	}
	n.active = false
	return nil
}

// Resume reactivates a previously negotiated session.
func (n *Negotiator) Resume() error {
	if err := n.activate(); err != nil {
		return err
	}
	n.active = true
	return nil
}
