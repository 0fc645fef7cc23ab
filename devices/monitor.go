package devices

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Change represents an output route change event.
type Change struct {
	Routes     Routes    `json:"routes"`
	DACPresent bool      `json:"dacPresent"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChangeCallback receives route change notifications.
type ChangeCallback func(Change)

// Monitor polls the platform route provider and publishes changes.
// A route change invalidates the cached DAC classification so the next
// load re-probes against the new route set.
type Monitor struct {
	provider RouteProvider
	interval time.Duration
	log      *slog.Logger

	mu         sync.RWMutex
	routes     Routes
	dacPresent bool
	lastUpdate time.Time

	changes   chan Change
	cbMu      sync.RWMutex
	callbacks []ChangeCallback

	sf         singleflight.Group
	ctx        context.Context
	cancel     context.CancelFunc
	monitoring atomic.Bool
}

// NewMonitor creates a route monitor. It performs one synchronous scan so
// the first DACPresent call never races the initial poll.
func NewMonitor(provider RouteProvider, interval time.Duration, log *slog.Logger) (*Monitor, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		provider: provider,
		interval: interval,
		log:      log,
		changes:  make(chan Change, 8),
		ctx:      ctx,
		cancel:   cancel,
	}

	routes, err := provider()
	if err != nil {
		cancel()
		return nil, err
	}
	m.store(routes)
	return m, nil
}

// Start begins the polling loop. Safe to call once.
func (m *Monitor) Start() {
	if !m.monitoring.CompareAndSwap(false, true) {
		return
	}
	go m.loop()
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.scan()
		}
	}
}

// scan refreshes the route cache. Concurrent scans (poll tick plus an
// explicit ForceRefresh) are collapsed into one provider call.
func (m *Monitor) scan() {
	v, err, _ := m.sf.Do("routes", func() (any, error) {
		return m.provider()
	})
	if err != nil {
		m.log.Debug("route scan failed", "error", err)
		return
	}
	routes := v.(Routes)

	if routesEqual(m.Routes(), routes) {
		return
	}
	change := m.store(routes)
	m.notify(change)
}

// store replaces the cached route set and recomputes the DAC classification.
func (m *Monitor) store(routes Routes) Change {
	dac := QualifiesAsDAC(routes)
	m.mu.Lock()
	m.routes = routes
	m.dacPresent = dac
	m.lastUpdate = time.Now()
	m.mu.Unlock()
	return Change{Routes: routes, DACPresent: dac, Timestamp: time.Now()}
}

func (m *Monitor) notify(change Change) {
	select {
	case m.changes <- change:
	default:
		// Channel full; callbacks still fire.
	}

	m.cbMu.RLock()
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		go cb(change)
	}
}

// Routes returns the cached route set.
func (m *Monitor) Routes() Routes {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes
}

// DACPresent returns the cached capability classification for the current
// route set.
func (m *Monitor) DACPresent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dacPresent
}

// Changes returns the change notification channel.
func (m *Monitor) Changes() <-chan Change {
	return m.changes
}

// OnChange registers a callback for route changes.
func (m *Monitor) OnChange(cb ChangeCallback) {
	m.cbMu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.cbMu.Unlock()
}

// ForceRefresh triggers an immediate scan.
func (m *Monitor) ForceRefresh() {
	m.scan()
}

// Close stops the polling loop. The changes channel is intentionally left
// open; consumers stop reading once Close returns.
func (m *Monitor) Close() error {
	m.monitoring.Store(false)
	m.cancel()
	return nil
}

func routesEqual(a, b Routes) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
