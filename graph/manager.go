package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaban/hifi/format"
)

const (
	attachRetries    = 3
	attachRetryDelay = 50 * time.Millisecond
)

// Manager owns equalizer placement in a live graph. Attach and detach are
// idempotent and safe to call while the graph is rendering; both run on
// the engine's serialized control context.
type Manager struct {
	mu  sync.Mutex
	g   *Graph
	log *slog.Logger

	mixer  *MixerNode
	output *OutputNode
	source *SourceNode

	eq      *EqualizerNode
	enabled bool
	health  Health

	retryDelay time.Duration
}

// NewManager builds the fixed part of the graph: source slot, mixer,
// output, with mixer feeding output.
func NewManager(g *Graph, mixer *MixerNode, output *OutputNode, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := g.Attach(mixer); err != nil {
		return nil, err
	}
	if err := g.Attach(output); err != nil {
		return nil, err
	}
	if err := g.Connect(mixer, output, mixer.OutputFormat()); err != nil {
		return nil, err
	}
	return &Manager{
		g:          g,
		log:        log,
		mixer:      mixer,
		output:     output,
		enabled:    true,
		retryDelay: attachRetryDelay,
	}, nil
}

// Graph returns the managed graph.
func (m *Manager) Graph() *Graph { return m.g }

// Mixer returns the main mixer node.
func (m *Manager) Mixer() *MixerNode { return m.mixer }

// SetSource registers the current rendering source. Used as the fallback
// upstream candidate when the mixer input cannot be identified.
func (m *Manager) SetSource(s *SourceNode) {
	m.mu.Lock()
	m.source = s
	m.mu.Unlock()
}

// SetEnabled toggles the user-level equalizer setting.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// Health returns the current graph health.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// ResetHealth clears the mutation latch. Called only from an explicit
// engine reset, never from ordinary stop/reload.
func (m *Manager) ResetHealth() {
	m.mu.Lock()
	m.health = Healthy
	m.mu.Unlock()
}

// Equalizer returns the equalizer node, creating it lazily.
func (m *Manager) Equalizer() *EqualizerNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equalizerLocked()
}

func (m *Manager) equalizerLocked() *EqualizerNode {
	if m.eq == nil {
		m.eq = NewEqualizerNode(DefaultBandCount)
	}
	return m.eq
}

// AttachEqualizer inserts the equalizer upstream of the mixer. No-ops
// when the equalizer is disabled, the pending format is incompatible, the
// health latch is set, or the node is already correctly placed. A driver
// level connection failure latches the health state and is not retried;
// a missing upstream candidate is retried a bounded number of times and
// then given up silently, leaving playback unaffected.
func (m *Manager) AttachEqualizer(hint format.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || !hint.EqualizerCompatible() {
		return m.detachLocked()
	}
	if m.health != Healthy {
		return nil
	}

	eq := m.equalizerLocked()
	if !m.g.Attached(eq) {
		if err := m.g.Attach(eq); err != nil {
			return m.latch(err)
		}
	}

	// Already wired upstream of the mixer: nothing to do.
	if m.g.UpstreamOf(m.mixer) == Node(eq) {
		return nil
	}

	for attempt := 0; ; attempt++ {
		upstream := m.upstreamCandidateLocked(eq)
		if upstream == nil {
			if attempt+1 >= attachRetries {
				// Give up silently; the equalizer stays inactive and
				// playback continues on the existing path.
				m.log.Debug("no upstream candidate for equalizer, giving up")
				return nil
			}
			m.mu.Unlock()
			time.Sleep(m.retryDelay)
			m.mu.Lock()
			continue
		}

		f := upstream.OutputFormat()
		m.g.Disconnect(m.mixer)
		if err := m.g.Connect(upstream, eq, f); err != nil {
			// Restore the direct path before latching.
			_ = m.g.Connect(upstream, m.mixer, f)
			return m.latch(err)
		}
		if err := m.g.Connect(eq, m.mixer, f); err != nil {
			m.g.Disconnect(eq)
			_ = m.g.Connect(upstream, m.mixer, f)
			return m.latch(err)
		}
		eq.SetFormat(f)
		m.log.Debug("equalizer attached", "upstream", upstream.Name(), "format", f.Encoding.String())
		return nil
	}
}

// upstreamCandidateLocked picks the node that should feed the equalizer:
// the mixer's current input, or failing that the registered (or any)
// rendering source in the graph.
func (m *Manager) upstreamCandidateLocked(eq *EqualizerNode) Node {
	if up := m.g.UpstreamOf(m.mixer); up != nil && up != Node(eq) {
		return up
	}
	if m.source != nil && m.g.Attached(m.source) {
		return m.source
	}
	for _, s := range m.g.Sources() {
		return s
	}
	return nil
}

// DetachEqualizer removes the equalizer, reconnecting its upstream node
// directly to the mixer first so the signal path is never left broken.
func (m *Manager) DetachEqualizer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detachLocked()
}

func (m *Manager) detachLocked() error {
	if m.eq == nil || !m.g.Attached(m.eq) {
		return nil
	}

	if m.g.UpstreamOf(m.mixer) == Node(m.eq) {
		upstream := m.g.UpstreamOf(m.eq)
		m.g.Disconnect(m.mixer)
		if upstream != nil {
			if err := m.g.Connect(upstream, m.mixer, upstream.OutputFormat()); err != nil {
				return m.latch(err)
			}
		}
	}
	if err := m.g.Detach(m.eq); err != nil {
		return m.latch(err)
	}
	m.log.Debug("equalizer detached")
	return nil
}

// latch records a mutation failure and suppresses further attempts.
func (m *Manager) latch(err error) error {
	m.health = EqualizerUnavailable
	m.log.Warn("graph mutation failed, equalizer latched off", "error", err)
	return fmt.Errorf("%w: %v", ErrMutation, err)
}
