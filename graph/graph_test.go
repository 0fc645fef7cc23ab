package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/shaban/hifi/format"
)

var pcmFmt = format.Format{SampleRate: 44100, Channels: 2, Encoding: format.PCMFloat32}

func TestGraphConnect(t *testing.T) {
	g := New()
	src := NewSourceNode("track", pcmFmt)
	mix := NewMixerNode(pcmFmt)

	if err := g.Connect(src, mix, pcmFmt); !errors.Is(err, ErrNotAttached) {
		t.Errorf("connect before attach error = %v, want ErrNotAttached", err)
	}

	if err := g.Attach(src); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := g.Attach(src); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("double attach error = %v, want ErrAlreadyAttached", err)
	}
	if err := g.Attach(mix); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := g.Connect(src, src, pcmFmt); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("self connect error = %v, want ErrSelfConnection", err)
	}
	if err := g.Connect(src, mix, pcmFmt); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if up := g.UpstreamOf(mix); up != Node(src) {
		t.Errorf("UpstreamOf(mix) = %v, want src", up)
	}
	if down := g.DownstreamOf(src); down != Node(mix) {
		t.Errorf("DownstreamOf(src) = %v, want mix", down)
	}
	if f, ok := g.ConnectionFormat(mix); !ok || f != pcmFmt {
		t.Errorf("ConnectionFormat = %v %v", f, ok)
	}
}

func TestGraphDetachSeversConnections(t *testing.T) {
	g := New()
	src := NewSourceNode("track", pcmFmt)
	mix := NewMixerNode(pcmFmt)
	out := NewOutputNode(pcmFmt)
	for _, n := range []Node{src, mix, out} {
		if err := g.Attach(n); err != nil {
			t.Fatalf("Attach: %v", err)
		}
	}
	if err := g.Connect(src, mix, pcmFmt); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(mix, out, pcmFmt); err != nil {
		t.Fatal(err)
	}

	if !g.ReachesFrom(src, out) {
		t.Fatal("src must reach out through mix")
	}

	if err := g.Detach(mix); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if g.ReachesFrom(src, out) {
		t.Error("src must not reach out after mixer detach")
	}
	if g.UpstreamOf(out) != nil {
		t.Error("out still has an upstream after its source was detached")
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(New(), NewMixerNode(pcmFmt), NewOutputNode(pcmFmt), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.retryDelay = 0
	return m
}

// attachSource wires a playing source the way the controller does.
func attachSource(t *testing.T, m *Manager, f format.Format) *SourceNode {
	t.Helper()
	src := NewSourceNode("track", f)
	if err := m.Graph().Attach(src); err != nil {
		t.Fatalf("attach source: %v", err)
	}
	if err := m.Graph().Connect(src, m.Mixer(), f); err != nil {
		t.Fatalf("connect source: %v", err)
	}
	m.SetSource(src)
	return src
}

func TestManagerAttachEqualizer(t *testing.T) {
	m := newTestManager(t)
	src := attachSource(t, m, pcmFmt)

	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("AttachEqualizer: %v", err)
	}

	eq := m.Equalizer()
	g := m.Graph()
	if g.UpstreamOf(m.Mixer()) != Node(eq) {
		t.Fatal("equalizer not feeding the mixer")
	}
	if g.UpstreamOf(eq) != Node(src) {
		t.Fatal("source not feeding the equalizer")
	}
	if !g.ReachesFrom(src, m.Mixer()) {
		t.Fatal("signal path broken after attach")
	}
}

func TestManagerAttachIdempotent(t *testing.T) {
	m := newTestManager(t)
	src := attachSource(t, m, pcmFmt)

	for i := 0; i < 3; i++ {
		if err := m.AttachEqualizer(pcmFmt); err != nil {
			t.Fatalf("AttachEqualizer #%d: %v", i, err)
		}
	}

	// Exactly one equalizer hop: src -> eq -> mixer.
	g := m.Graph()
	eq := m.Equalizer()
	if g.UpstreamOf(m.Mixer()) != Node(eq) || g.UpstreamOf(eq) != Node(src) {
		t.Error("repeated attach altered the wiring")
	}
}

func TestManagerDetachRestoresPath(t *testing.T) {
	m := newTestManager(t)
	src := attachSource(t, m, pcmFmt)

	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatal(err)
	}
	if err := m.DetachEqualizer(); err != nil {
		t.Fatalf("DetachEqualizer: %v", err)
	}

	g := m.Graph()
	if g.UpstreamOf(m.Mixer()) != Node(src) {
		t.Error("direct source path not restored after detach")
	}
	if g.Attached(m.Equalizer()) {
		t.Error("equalizer still attached")
	}
	if !g.ReachesFrom(src, m.Mixer()) {
		t.Error("signal path broken after detach")
	}

	// Round-trip: attach works again after detach.
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	if !g.ReachesFrom(src, m.Mixer()) {
		t.Error("signal path broken after re-attach")
	}
}

func TestManagerRejectsIncompatibleFormat(t *testing.T) {
	m := newTestManager(t)
	dop := format.Format{SampleRate: 176400, Channels: 2, Encoding: format.DoP}
	src := attachSource(t, m, dop)

	if err := m.AttachEqualizer(dop); err != nil {
		t.Fatalf("AttachEqualizer: %v", err)
	}
	if m.Graph().UpstreamOf(m.Mixer()) != Node(src) {
		t.Error("one-bit carrier stream must bypass the equalizer")
	}

	// Flipping to a compatible format later attaches normally.
	src.SetFormat(pcmFmt)
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatal(err)
	}
	if m.Graph().UpstreamOf(m.Mixer()) != Node(m.Equalizer()) {
		t.Error("equalizer missing after format became compatible")
	}
}

func TestManagerDisabledDetaches(t *testing.T) {
	m := newTestManager(t)
	src := attachSource(t, m, pcmFmt)

	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatal(err)
	}
	m.SetEnabled(false)
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("AttachEqualizer while disabled: %v", err)
	}
	if m.Graph().UpstreamOf(m.Mixer()) != Node(src) {
		t.Error("disabled equalizer still in the signal path")
	}
}

func TestManagerNoSourceGivesUpSilently(t *testing.T) {
	m := newTestManager(t)
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("AttachEqualizer with no source: %v", err)
	}
	if m.Health() != Healthy {
		t.Error("missing upstream must not latch the health state")
	}
}

func TestManagerConnectFailureLatches(t *testing.T) {
	m := newTestManager(t)
	src := attachSource(t, m, pcmFmt)

	boom := errors.New("driver rejected connection")
	m.Graph().connectHook = func(s, d Node) error {
		if _, ok := d.(*EqualizerNode); ok {
			return boom
		}
		return nil
	}

	err := m.AttachEqualizer(pcmFmt)
	if !errors.Is(err, ErrMutation) {
		t.Fatalf("error = %v, want ErrMutation", err)
	}
	if m.Health() != EqualizerUnavailable {
		t.Errorf("Health = %v, want EqualizerUnavailable", m.Health())
	}
	// Direct path restored so playback continues.
	if m.Graph().UpstreamOf(m.Mixer()) != Node(src) {
		t.Error("direct path not restored after failed insert")
	}

	// Latched: further attempts are suppressed without error.
	m.Graph().connectHook = nil
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("attach while latched: %v", err)
	}
	if m.Graph().UpstreamOf(m.Mixer()) != Node(src) {
		t.Error("latched manager mutated the graph")
	}

	// Only an explicit reset re-enables mutations.
	m.ResetHealth()
	if err := m.AttachEqualizer(pcmFmt); err != nil {
		t.Fatalf("attach after reset: %v", err)
	}
	if m.Graph().UpstreamOf(m.Mixer()) != Node(m.Equalizer()) {
		t.Error("equalizer missing after health reset")
	}
}

func TestEqualizerDefaultBands(t *testing.T) {
	eq := NewEqualizerNode(0)
	bands := eq.Bands()
	if len(bands) != DefaultBandCount {
		t.Fatalf("bands = %d, want %d", len(bands), DefaultBandCount)
	}
	if math.Abs(bands[0].Frequency-20) > 1e-9 {
		t.Errorf("first band = %v Hz, want 20", bands[0].Frequency)
	}
	if math.Abs(bands[len(bands)-1].Frequency-20000) > 1e-6 {
		t.Errorf("last band = %v Hz, want 20000", bands[len(bands)-1].Frequency)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Frequency <= bands[i-1].Frequency {
			t.Fatalf("band %d not ascending: %v <= %v", i, bands[i].Frequency, bands[i-1].Frequency)
		}
	}
}

func TestApplyBandsOneToOne(t *testing.T) {
	eq := NewEqualizerNode(16)
	eq.ApplyBands([]BandSetting{
		{Frequency: 100, Gain: 3},
		{Frequency: 1000, Gain: -2},
		{Frequency: 10000, Gain: 6},
	})

	bands := eq.Bands()
	if bands[0].Frequency != 100 || bands[0].Gain != 3 || bands[0].Bypass {
		t.Errorf("band 0 = %+v", bands[0])
	}
	if bands[2].Frequency != 10000 || bands[2].Gain != 6 {
		t.Errorf("band 2 = %+v", bands[2])
	}
	for i := 3; i < 16; i++ {
		if !bands[i].Bypass {
			t.Errorf("band %d not bypassed", i)
		}
	}
}

func TestApplyBandsPartition(t *testing.T) {
	// 31 external settings onto 16 bands: contiguous groups, each band
	// taking its group's arithmetic mean.
	eq := NewEqualizerNode(16)
	settings := make([]BandSetting, 31)
	for i := range settings {
		settings[i] = BandSetting{Frequency: float64(100 * (i + 1)), Gain: float64(i)}
	}
	eq.ApplyBands(settings)

	bands := eq.Bands()
	covered := 0
	prevHi := 0
	for i := 0; i < 16; i++ {
		lo := i * 31 / 16
		hi := (i + 1) * 31 / 16
		if lo != prevHi {
			t.Fatalf("partition %d not contiguous: lo %d, previous hi %d", i, lo, prevHi)
		}
		prevHi = hi
		covered += hi - lo

		var freq, gain float64
		for _, s := range settings[lo:hi] {
			freq += s.Frequency
			gain += s.Gain
		}
		n := float64(hi - lo)
		if math.Abs(bands[i].Frequency-freq/n) > 1e-9 {
			t.Errorf("band %d freq = %v, want group mean %v", i, bands[i].Frequency, freq/n)
		}
		if math.Abs(bands[i].Gain-gain/n) > 1e-9 {
			t.Errorf("band %d gain = %v, want group mean %v", i, bands[i].Gain, gain/n)
		}
		if bands[i].Bypass {
			t.Errorf("band %d bypassed in partition mode", i)
		}
	}
	if covered != 31 {
		t.Errorf("partitions cover %d settings, want all 31", covered)
	}
}

func TestApplyBandsEmptyRestoresDefault(t *testing.T) {
	eq := NewEqualizerNode(16)
	eq.ApplyBands([]BandSetting{{Frequency: 100, Gain: 3}})
	eq.ApplyBands(nil)

	bands := eq.Bands()
	if math.Abs(bands[0].Frequency-20) > 1e-9 || bands[0].Gain != 0 {
		t.Errorf("band 0 = %+v, want flat 20 Hz default", bands[0])
	}
}
