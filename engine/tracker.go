package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shaban/hifi/observe"
)

// tickInterval is the position publication cadence. 100 ms tracks a
// progress bar smoothly without waking the process excessively.
const tickInterval = 100 * time.Millisecond

// Tracker publishes the current playback position. When the transport
// exposes an exact frame position that is used directly; otherwise the
// position advances on wall-clock time between ticks. The position is
// always clamped to [0, duration].
type Tracker struct {
	mu       sync.Mutex
	rate     float64
	duration float64
	position float64
	running  bool

	transport Transport
	metrics   *observe.Metrics

	lastTick   time.Time
	onComplete func()

	cancel context.CancelFunc
	done   chan struct{}
}

// newTracker creates a stopped tracker for one loaded track.
func newTracker(t Transport, rate, duration float64, metrics *observe.Metrics, onComplete func()) *Tracker {
	return &Tracker{
		transport:  t,
		rate:       rate,
		duration:   duration,
		metrics:    metrics,
		onComplete: onComplete,
	}
}

// Start begins ticking. Safe to call on an already running tracker.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.lastTick = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(ctx, t.done)
}

// Stop halts ticking, keeping the last published position.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
}

func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// tick advances the position once and reports whether playback completed.
func (t *Tracker) tick() bool {
	t.mu.Lock()
	now := time.Now()

	if frame, ok := t.transport.FramePosition(); ok && t.rate > 0 {
		t.position = float64(frame) / t.rate
	} else {
		t.position += now.Sub(t.lastTick).Seconds()
	}
	t.lastTick = now

	if t.position < 0 {
		t.position = 0
	}
	completed := false
	if t.duration > 0 && t.position >= t.duration {
		t.position = t.duration
		completed = true
		t.running = false
	}
	onComplete := t.onComplete
	t.mu.Unlock()

	t.metrics.RecordPositionTick(context.Background())

	if completed && onComplete != nil {
		onComplete()
	}
	return completed
}

// Position returns the last published position in seconds.
func (t *Tracker) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// SetPosition overrides the position, clamped to [0, duration]. Used for
// optimistic seeks when no accurate repositioning path exists.
func (t *Tracker) SetPosition(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if t.duration > 0 && seconds > t.duration {
		seconds = t.duration
	}
	t.position = seconds
	t.lastTick = time.Now()
}

// Duration returns the track duration in seconds, 0 when unknown.
func (t *Tracker) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}
