// Package engine ties the decoder, session, signal graph and position
// tracking together into a playback engine. All state lives in an
// explicit Engine value; there is no package-level singleton, so tests
// and multi-engine hosts can run isolated instances side by side.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaban/hifi/config"
	"github.com/shaban/hifi/decode"
	"github.com/shaban/hifi/devices"
	"github.com/shaban/hifi/engine/queue"
	"github.com/shaban/hifi/format"
	"github.com/shaban/hifi/graph"
	"github.com/shaban/hifi/observe"
	"github.com/shaban/hifi/session"
)

// Transport drives actual sample delivery for one loaded track. The
// hardware-facing implementation lives behind this interface so the
// engine logic is testable without a device.
type Transport interface {
	Start() error
	Pause() error
	Resume() error
	Stop() error

	// FramePosition reports the exact render position when the backend
	// exposes one. ok is false when only wall-clock tracking is possible.
	FramePosition() (frame int64, ok bool)

	// SeekFrame repositions to an exact frame. Backends without
	// frame-accurate seeking return an error and the caller degrades.
	SeekFrame(frame int64) error

	// SeekTime repositions to an approximate time in seconds.
	SeekTime(seconds float64) error
}

// TransportFactory builds a Transport for a resolved handle and the
// format the hardware session was negotiated to.
type TransportFactory func(h *decode.Handle, target format.Format) (Transport, error)

// Options configures a new Engine. Hardware and Transport are required;
// everything else has a usable default.
type Options struct {
	Hardware  session.Hardware
	Transport TransportFactory

	// Routes supplies the current output route set; nil disables the
	// external DAC probe and one-bit material is transcoded to PCM.
	Routes devices.RouteProvider

	Prefs   *config.Store
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Engine is the playback engine context object.
type Engine struct {
	id  uuid.UUID
	log *slog.Logger

	q          *queue.Queue
	negotiator *session.Negotiator
	monitor    *devices.Monitor
	graph      *graph.Manager
	prefs      *config.Store
	metrics    *observe.Metrics
	transport  TransportFactory

	controller *Controller

	mu     sync.Mutex
	closed bool
}

// New creates an engine, builds the fixed part of the signal graph and
// starts the control queue and route monitor.
func New(opts Options) (*Engine, error) {
	if opts.Hardware == nil {
		return nil, fmt.Errorf("engine: Options.Hardware is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("engine: Options.Transport is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	prefs := opts.Prefs
	if prefs == nil {
		prefs = config.NewStore(nil)
	}

	busFormat := format.Format{SampleRate: opts.Hardware.SampleRate(), Channels: 2, Encoding: format.PCMFloat32}
	g := graph.New()
	mgr, err := graph.NewManager(g, graph.NewMixerNode(busFormat), graph.NewOutputNode(busFormat), log)
	if err != nil {
		return nil, fmt.Errorf("engine: build graph: %w", err)
	}

	e := &Engine{
		id:         uuid.New(),
		log:        log,
		q:          queue.New(0),
		negotiator: session.NewNegotiator(opts.Hardware, log),
		graph:      mgr,
		prefs:      prefs,
		metrics:    opts.Metrics,
		transport:  opts.Transport,
	}
	if opts.Routes != nil {
		e.monitor, err = devices.NewMonitor(opts.Routes, 0, log)
		if err != nil {
			log.Warn("route monitor unavailable, assuming no external DAC", "error", err)
		} else {
			e.monitor.Start()
		}
	}

	e.controller = newController(e)
	e.q.Start()

	prefs.Subscribe(e.onPreferencesChanged)
	e.applyPreferences(prefs.Current())

	return e, nil
}

// ID returns the engine's unique identity.
func (e *Engine) ID() uuid.UUID { return e.id }

// Controller returns the playback controller.
func (e *Engine) Controller() *Controller { return e.controller }

// GraphHealth reports the current signal graph health.
func (e *Engine) GraphHealth() graph.Health { return e.graph.Health() }

// DACPresent reports whether the current output route qualifies as an
// external DAC. False when no route monitor is configured.
func (e *Engine) DACPresent() bool {
	if e.monitor == nil {
		return false
	}
	return e.monitor.DACPresent()
}

// Reset stops playback, clears the graph health latch and returns the
// engine to Idle. This is the only path that re-enables the equalizer
// after a mutation failure.
func (e *Engine) Reset(ctx context.Context) error {
	return e.q.RunSync(func(context.Context) error {
		e.controller.resetLocked()
		e.graph.ResetHealth()
		e.log.Info("engine reset", "engine", e.id)
		return nil
	})
}

// Close shuts down the engine. Further control calls return ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	err := e.q.RunSync(func(context.Context) error {
		e.controller.resetLocked()
		return nil
	})
	e.q.Close()
	if e.monitor != nil {
		e.monitor.Close()
	}
	return err
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// transcodeMode maps the preference string onto the decode policy.
func (e *Engine) transcodeMode() decode.Mode {
	switch e.prefs.Current().Transcode {
	case "pcm":
		return decode.ForcePCM
	case "dop":
		return decode.ForceDoP
	default:
		return decode.Auto
	}
}

// onPreferencesChanged re-applies settings on the control queue so the
// change serializes with any in-flight load.
func (e *Engine) onPreferencesChanged(p *config.Preferences) {
	_ = e.q.Enqueue(queue.Func(func(context.Context) error {
		e.applyPreferences(p)
		return nil
	}))
}

func (e *Engine) applyPreferences(p *config.Preferences) {
	e.negotiator.SetPreferredBuffer(p.BufferDuration)

	eq := e.graph.Equalizer()
	eq.ApplyBands(p.Equalizer.Bands)
	eq.SetGlobalGain(p.Equalizer.GlobalGain)
	e.graph.SetEnabled(p.Equalizer.Enabled)

	// Re-evaluate placement against the live track, if any.
	if h := e.controller.handle(); h != nil {
		status := "ok"
		op := "attach"
		if !p.Equalizer.Enabled {
			op = "detach"
		}
		if err := e.graph.AttachEqualizer(h.Format()); err != nil {
			status = "latched"
			e.log.Warn("equalizer preference change failed", "error", err)
		}
		e.metrics.RecordEqualizerMutation(context.Background(), op, status)
	}
}

func isUnsupportedFormat(err error) bool {
	return errors.Is(err, decode.ErrUnsupportedFormat) ||
		errors.Is(err, decode.ErrUnsupportedVariant) ||
		errors.Is(err, decode.ErrDecoderConstruction)
}

func isHardwareFailure(err error) bool {
	return errors.Is(err, session.ErrActivation) ||
		errors.Is(err, session.ErrConfiguration)
}
