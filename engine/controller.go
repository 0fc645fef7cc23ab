package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaban/hifi/decode"
	"github.com/shaban/hifi/engine/queue"
	"github.com/shaban/hifi/format"
	"github.com/shaban/hifi/graph"
	"github.com/shaban/hifi/session"
)

// State is the playback state machine.
type State int

const (
	// Idle means no track has been loaded since creation or reset.
	Idle State = iota

	// Loading means a load is in flight; control calls are rejected.
	Loading

	// Playing means the transport is rendering.
	Playing

	// Paused means rendering is suspended at the current position.
	Paused

	// Stopped is terminal for the current track: rendering was stopped
	// or the track played to completion. Only a new Load leaves it.
	Stopped

	// Failed means the last load or start failed; see FailureReason.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller is the playback state machine. Every mutation runs on the
// engine's serialized control queue, so transitions never interleave.
type Controller struct {
	e *Engine

	// Published state, guarded for snapshot readers. Mutated only from
	// the control queue goroutine.
	state   State
	reason  FailureReason
	h       *decode.Handle
	trans   Transport
	tracker *Tracker
	source  *graph.SourceNode
	loadGen uuid.UUID

	onFinished func()
}

func newController(e *Engine) *Controller {
	return &Controller{e: e, state: Idle}
}

// OnFinished registers a callback invoked after a track plays to
// completion, once per track, on its own goroutine.
func (c *Controller) OnFinished(fn func()) {
	_ = c.e.q.Enqueue(queue.Func(func(context.Context) error {
		c.onFinished = fn
		return nil
	}))
}

// State returns the current playback state.
func (c *Controller) State() State {
	var s State
	_ = c.e.q.RunSync(func(context.Context) error {
		s = c.state
		return nil
	})
	return s
}

// Reason returns the failure reason for the Failed state, empty otherwise.
func (c *Controller) Reason() FailureReason {
	var r FailureReason
	_ = c.e.q.RunSync(func(context.Context) error {
		r = c.reason
		return nil
	})
	return r
}

// handle returns the loaded handle; control queue context only.
func (c *Controller) handle() *decode.Handle { return c.h }

// Load resolves, decodes and negotiates path, replacing any current
// track, and starts rendering. Decoder construction runs outside the
// control queue so a slow open never blocks other control calls; a load
// whose slot is taken by a newer Load or a Stop before committing is
// discarded and returns ErrLoadSuperseded.
func (c *Controller) Load(ctx context.Context, path string) error {
	if c.e.isClosed() {
		return ErrClosed
	}
	start := time.Now()

	gen := uuid.New()
	if err := c.e.q.RunSync(func(context.Context) error {
		c.stopLocked()
		c.state = Loading
		c.reason = ReasonNone
		c.loadGen = gen
		return nil
	}); err != nil {
		return err
	}

	h, err := c.openHandle(path)
	if err != nil {
		c.e.metrics.RecordLoad(ctx, time.Since(start), "unresolved", "failed")
		return c.failLoad(gen, err)
	}

	// Rate shortfalls degrade quality but playback can proceed; only an
	// activation failure aborts the load.
	cfg, negErr := c.e.negotiator.Configure(h.SampleRate(), h.Kind().OneBit(), h.Kind() == decode.OneBitToDoP)
	if negErr != nil {
		if errors.Is(negErr, session.ErrActivation) {
			h.Close()
			c.e.metrics.RecordLoad(ctx, time.Since(start), h.Kind().String(), "failed")
			return c.failLoad(gen, negErr)
		}
		c.e.log.Warn("session negotiation degraded", "error", negErr)
	}
	c.e.metrics.RecordNegotiationFallbacks(ctx, int64(cfg.RateFallbacks))

	trans, err := c.e.transport(h, format.Format{
		SampleRate: cfg.SampleRate,
		Channels:   h.Channels(),
		Encoding:   h.Format().Encoding,
	})
	if err != nil {
		h.Close()
		c.e.metrics.RecordLoad(ctx, time.Since(start), h.Kind().String(), "failed")
		return c.failLoad(gen, fmt.Errorf("%w: %v", decode.ErrDecoderConstruction, err))
	}

	err = c.e.q.RunSync(func(context.Context) error {
		if c.loadGen != gen {
			return ErrLoadSuperseded
		}
		return c.commitLocked(h, trans)
	})
	if errors.Is(err, ErrLoadSuperseded) {
		h.Close()
		c.e.metrics.RecordLoad(ctx, time.Since(start), h.Kind().String(), "superseded")
		return err
	}
	if err != nil {
		// commitLocked already tore the track down and published Failed.
		c.e.metrics.RecordLoad(ctx, time.Since(start), h.Kind().String(), "failed")
		return err
	}

	c.e.metrics.RecordLoad(ctx, time.Since(start), h.Kind().String(), "ok")
	return nil
}

// openHandle computes the transcode decision and constructs the decoder.
func (c *Controller) openHandle(path string) (*decode.Handle, error) {
	decision := decode.Decide(c.e.transcodeMode(), c.e.DACPresent(), 0, 0)
	return decode.Open(path, decision)
}

// commitLocked installs a freshly loaded track and starts the transport;
// control queue context.
func (c *Controller) commitLocked(h *decode.Handle, trans Transport) error {
	c.h = h
	c.trans = trans

	src := graph.NewSourceNode(h.Asset().Path, h.Format())
	c.source = src
	g := c.e.graph.Graph()
	if err := g.Attach(src); err == nil {
		if err := g.Connect(src, c.e.graph.Mixer(), h.Format()); err != nil {
			c.e.log.Warn("source connect failed", "error", err)
		}
	}
	c.e.graph.SetSource(src)

	status := "ok"
	if err := c.e.graph.AttachEqualizer(h.Format()); err != nil {
		status = "latched"
		c.e.log.Warn("equalizer attach failed", "error", err)
	}
	c.e.metrics.RecordEqualizerMutation(context.Background(), "attach", status)

	c.tracker = newTracker(trans, h.SampleRate(), c.durationOf(h), c.e.metrics, c.finished)
	if err := trans.Start(); err != nil {
		c.stopLocked()
		c.state = Failed
		c.reason = classifyFailure(err)
		return err
	}
	c.state = Playing
	c.tracker.Start()
	c.e.log.Info("playback started",
		"path", h.Asset().Path,
		"kind", h.Kind().String(),
		"rate", h.SampleRate(),
		"frames", h.TotalFrames())
	return nil
}

// durationOf derives the duration in seconds, preferring the metadata
// value and falling back to frames over rate.
func (c *Controller) durationOf(h *decode.Handle) float64 {
	if d := h.Asset().Duration.Seconds(); d > 0 {
		return d
	}
	if r := h.SampleRate(); r > 0 && h.TotalFrames() > 0 {
		return float64(h.TotalFrames()) / r
	}
	return 0
}

// failLoad publishes the Failed state unless a newer load owns the slot.
func (c *Controller) failLoad(gen uuid.UUID, cause error) error {
	_ = c.e.q.RunSync(func(context.Context) error {
		if c.loadGen != gen {
			return nil
		}
		c.state = Failed
		c.reason = classifyFailure(cause)
		return nil
	})
	return cause
}

// Pause suspends rendering and the hardware session, keeping position.
func (c *Controller) Pause() error {
	if c.e.isClosed() {
		return ErrClosed
	}
	return c.e.q.RunSync(func(context.Context) error {
		switch c.state {
		case Playing:
			c.tracker.Stop()
			if err := c.trans.Pause(); err != nil {
				return err
			}
			if err := c.e.negotiator.Suspend(); err != nil {
				c.e.log.Warn("session suspend failed", "error", err)
			}
			c.state = Paused
			return nil
		case Paused:
			return nil
		default:
			return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, c.state)
		}
	})
}

// Resume continues rendering after a pause.
func (c *Controller) Resume() error {
	if c.e.isClosed() {
		return ErrClosed
	}
	return c.e.q.RunSync(func(context.Context) error {
		switch c.state {
		case Paused:
			return c.resumeLocked()
		case Playing:
			return nil
		default:
			return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, c.state)
		}
	})
}

func (c *Controller) resumeLocked() error {
	if err := c.e.negotiator.Resume(); err != nil {
		c.state = Failed
		c.reason = classifyFailure(err)
		return err
	}
	if err := c.trans.Resume(); err != nil {
		c.state = Failed
		c.reason = classifyFailure(err)
		return err
	}
	c.state = Playing
	c.tracker.Start()
	return nil
}

// Stop halts rendering and releases the loaded track.
func (c *Controller) Stop() error {
	if c.e.isClosed() {
		return ErrClosed
	}
	return c.e.q.RunSync(func(context.Context) error {
		c.stopLocked()
		return nil
	})
}

// stopLocked tears down the current track; control queue context. The
// graph health latch survives deliberately, only Reset clears it.
func (c *Controller) stopLocked() {
	if c.tracker != nil {
		c.tracker.Stop()
	}
	if c.trans != nil {
		if err := c.trans.Stop(); err != nil {
			c.e.log.Warn("transport stop failed", "error", err)
		}
	}
	if err := c.e.graph.DetachEqualizer(); err != nil {
		c.e.log.Warn("equalizer detach on stop failed", "error", err)
	}
	if c.source != nil {
		g := c.e.graph.Graph()
		g.Disconnect(c.e.graph.Mixer())
		if err := g.Detach(c.source); err != nil {
			c.e.log.Debug("source detach", "error", err)
		}
		c.e.graph.SetSource(nil)
		c.source = nil
	}
	if c.h != nil {
		if err := c.h.Close(); err != nil {
			c.e.log.Warn("decoder close failed", "error", err)
		}
		c.h = nil
	}
	c.trans = nil
	c.tracker = nil
	// Invalidating the generation makes an in-flight load's completion a
	// no-op instead of resurrecting a track the caller just stopped.
	c.loadGen = uuid.Nil
	c.state = Stopped
	c.reason = ReasonNone
}

// resetLocked is stopLocked plus the return to Idle; control queue
// context, reached through Engine.Reset and Close.
func (c *Controller) resetLocked() {
	c.stopLocked()
	c.state = Idle
}

// finished runs when the tracker reaches the track duration. It moves to
// Stopped at the end position and fires the completion callback.
func (c *Controller) finished() {
	_ = c.e.q.Enqueue(queue.Func(func(context.Context) error {
		if c.state != Playing {
			return nil
		}
		if err := c.trans.Stop(); err != nil {
			c.e.log.Debug("transport stop at end", "error", err)
		}
		if err := c.e.negotiator.Suspend(); err != nil {
			c.e.log.Debug("session suspend at end", "error", err)
		}
		c.state = Stopped
		if fn := c.onFinished; fn != nil {
			// Own goroutine so the callback may call back into the
			// controller without deadlocking the control queue.
			go fn()
		}
		return nil
	}))
}

// Seek repositions playback to seconds, clamped to [0, duration].
//
// Accuracy degrades in steps: one-bit streams only ever seek by time
// because a frame index in the carrier domain is ambiguous; PCM streams
// try the frame-accurate path first, then time-based, and finally the
// tracker position alone is moved so the UI stays coherent even when the
// backend refused both.
func (c *Controller) Seek(seconds float64) error {
	if c.e.isClosed() {
		return ErrClosed
	}
	return c.e.q.RunSync(func(context.Context) error {
		if c.h == nil || c.tracker == nil {
			return ErrNoTrack
		}
		switch c.state {
		case Playing, Paused:
		default:
			return fmt.Errorf("%w: seek from %s", ErrInvalidTransition, c.state)
		}

		if seconds < 0 {
			seconds = 0
		}
		if d := c.tracker.Duration(); d > 0 && seconds > d {
			seconds = d
		}

		if c.h.Kind().OneBit() {
			if err := c.trans.SeekTime(seconds); err != nil {
				c.e.metrics.RecordSeekFallback(context.Background(), "optimistic")
				c.e.log.Debug("time seek refused, tracking optimistically", "error", err)
			}
			c.tracker.SetPosition(seconds)
			return nil
		}

		frame := int64(seconds * c.h.SampleRate())
		if tf := c.h.TotalFrames(); tf > 0 && frame >= tf {
			frame = tf - 1
		}
		if err := c.trans.SeekFrame(frame); err == nil {
			c.tracker.SetPosition(seconds)
			return nil
		}
		c.e.metrics.RecordSeekFallback(context.Background(), "time")
		if err := c.trans.SeekTime(seconds); err == nil {
			c.tracker.SetPosition(seconds)
			return nil
		}
		c.e.metrics.RecordSeekFallback(context.Background(), "optimistic")
		c.tracker.SetPosition(seconds)
		return nil
	})
}

// Position returns the current playback position in seconds.
func (c *Controller) Position() float64 {
	var pos float64
	_ = c.e.q.RunSync(func(context.Context) error {
		if c.tracker != nil {
			pos = c.tracker.Position()
		}
		return nil
	})
	return pos
}
