// Package observe provides the engine's observability primitives:
// OpenTelemetry metric instruments for decoder resolution, session
// negotiation, equalizer mutations and playback progress. A nil *Metrics
// is valid and records nothing, so callers never branch on availability.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all engine metrics.
const meterName = "github.com/shaban/hifi"

// Metrics holds all metric instruments. The underlying OTel types handle
// their own synchronization.
type Metrics struct {
	// LoadDuration tracks end-to-end track load latency in seconds.
	// Attribute: "status" (ok, failed), "kind" (decoder variant).
	LoadDuration metric.Float64Histogram

	// NegotiationFallbacks counts how many ladder rungs were consumed
	// before the hardware accepted a rate.
	NegotiationFallbacks metric.Int64Counter

	// EqualizerMutations counts attach/detach outcomes.
	// Attributes: "op" (attach, detach), "status" (ok, latched, skipped).
	EqualizerMutations metric.Int64Counter

	// SeekFallbacks counts seeks that degraded from frame-accurate to
	// time-based or optimistic positioning. Attribute: "mode".
	SeekFallbacks metric.Int64Counter

	// PositionTicks counts tracker ticks, a liveness signal for playback.
	PositionTicks metric.Int64Counter
}

// NewMetrics creates instruments on the given provider. Passing nil uses
// the global provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var m Metrics
	var err error

	if m.LoadDuration, err = meter.Float64Histogram("hifi.load.duration",
		metric.WithDescription("Track load latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.NegotiationFallbacks, err = meter.Int64Counter("hifi.session.fallbacks",
		metric.WithDescription("Sample rate ladder rungs consumed")); err != nil {
		return nil, err
	}
	if m.EqualizerMutations, err = meter.Int64Counter("hifi.graph.eq_mutations",
		metric.WithDescription("Equalizer attach/detach outcomes")); err != nil {
		return nil, err
	}
	if m.SeekFallbacks, err = meter.Int64Counter("hifi.seek.fallbacks",
		metric.WithDescription("Seeks degraded from the frame-accurate path")); err != nil {
		return nil, err
	}
	if m.PositionTicks, err = meter.Int64Counter("hifi.position.ticks",
		metric.WithDescription("Position tracker ticks")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordLoad records one load outcome. Nil-safe.
func (m *Metrics) RecordLoad(ctx context.Context, d time.Duration, kind, status string) {
	if m == nil {
		return
	}
	m.LoadDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status)))
}

// RecordNegotiationFallbacks records ladder depth. Nil-safe.
func (m *Metrics) RecordNegotiationFallbacks(ctx context.Context, rungs int64) {
	if m == nil || rungs == 0 {
		return
	}
	m.NegotiationFallbacks.Add(ctx, rungs)
}

// RecordEqualizerMutation records one attach/detach outcome. Nil-safe.
func (m *Metrics) RecordEqualizerMutation(ctx context.Context, op, status string) {
	if m == nil {
		return
	}
	m.EqualizerMutations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op), attribute.String("status", status)))
}

// RecordSeekFallback records one degraded seek. Nil-safe.
func (m *Metrics) RecordSeekFallback(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.SeekFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordPositionTick records one tracker tick. Nil-safe.
func (m *Metrics) RecordPositionTick(ctx context.Context) {
	if m == nil {
		return
	}
	m.PositionTicks.Add(ctx, 1)
}
