package graph

import (
	"math"
	"sync"

	"github.com/shaban/hifi/format"
)

// DefaultBandCount is the number of fixed hardware bands.
const DefaultBandCount = 16

// Geometric default band spacing bounds.
const (
	defaultLowFrequency  = 20.0
	defaultHighFrequency = 20000.0
	defaultBandwidth     = 0.5 // octaves
)

// BandSetting is one externally supplied (frequency, gain) pair.
type BandSetting struct {
	Frequency float64 `yaml:"frequency" json:"frequency"`
	Gain      float64 `yaml:"gain" json:"gain"`
}

// Band is one fixed hardware equalizer band.
type Band struct {
	Frequency float64 `json:"frequency"`
	Gain      float64 `json:"gain"`
	Bandwidth float64 `json:"bandwidth"`
	Bypass    bool    `json:"bypass"`
}

// EqualizerNode is the parametric equalizer. It processes full-range
// float PCM only; the manager keeps it out of the graph for any other
// format. Created lazily on first need and reused across track changes.
type EqualizerNode struct {
	mu         sync.Mutex
	fmtF       format.Format
	bands      []Band
	globalGain float64
	bypass     bool
}

// NewEqualizerNode creates an equalizer with n fixed bands in the flat
// default configuration. n <= 0 selects DefaultBandCount.
func NewEqualizerNode(n int) *EqualizerNode {
	if n <= 0 {
		n = DefaultBandCount
	}
	eq := &EqualizerNode{bands: make([]Band, n)}
	eq.applyDefault()
	return eq
}

func (eq *EqualizerNode) Name() string { return "equalizer" }

func (eq *EqualizerNode) OutputFormat() format.Format {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.fmtF
}

// SetFormat records the processing format; set by the manager when the
// node is wired between upstream and mixer.
func (eq *EqualizerNode) SetFormat(f format.Format) {
	eq.mu.Lock()
	eq.fmtF = f
	eq.mu.Unlock()
}

// Bands returns a copy of the current band table.
func (eq *EqualizerNode) Bands() []Band {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	out := make([]Band, len(eq.bands))
	copy(out, eq.bands)
	return out
}

// SetGlobalGain sets the overall makeup gain in dB.
func (eq *EqualizerNode) SetGlobalGain(db float64) {
	eq.mu.Lock()
	eq.globalGain = db
	eq.mu.Unlock()
}

// GlobalGain returns the overall makeup gain in dB.
func (eq *EqualizerNode) GlobalGain() float64 {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.globalGain
}

// SetBypass toggles the overall bypass flag.
func (eq *EqualizerNode) SetBypass(bypass bool) {
	eq.mu.Lock()
	eq.bypass = bypass
	eq.mu.Unlock()
}

// Bypassed reports the overall bypass flag.
func (eq *EqualizerNode) Bypassed() bool {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.bypass
}

// ApplyBands maps M externally supplied settings onto the N fixed bands.
//
//   - M == 0: geometric spacing between 20 Hz and 20 kHz, zero gain.
//   - M <= N: direct 1:1 assignment; remaining bands bypassed.
//   - M > N: the inputs are partitioned into N contiguous groups and each
//     band takes the arithmetic mean of its group's frequency and gain.
func (eq *EqualizerNode) ApplyBands(settings []BandSetting) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	n := len(eq.bands)
	m := len(settings)

	switch {
	case m == 0:
		eq.applyDefaultLocked()

	case m <= n:
		for i := 0; i < n; i++ {
			if i < m {
				eq.bands[i] = Band{
					Frequency: settings[i].Frequency,
					Gain:      settings[i].Gain,
					Bandwidth: defaultBandwidth,
				}
			} else {
				eq.bands[i] = Band{Bandwidth: defaultBandwidth, Bypass: true}
			}
		}

	default:
		for i := 0; i < n; i++ {
			lo := i * m / n
			hi := (i + 1) * m / n
			group := settings[lo:hi]
			var freq, gain float64
			for _, s := range group {
				freq += s.Frequency
				gain += s.Gain
			}
			count := float64(len(group))
			eq.bands[i] = Band{
				Frequency: freq / count,
				Gain:      gain / count,
				Bandwidth: defaultBandwidth,
			}
		}
	}
}

func (eq *EqualizerNode) applyDefault() {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.applyDefaultLocked()
}

// applyDefaultLocked spaces the bands geometrically with zero gain.
func (eq *EqualizerNode) applyDefaultLocked() {
	n := len(eq.bands)
	ratio := 1.0
	if n > 1 {
		ratio = math.Pow(defaultHighFrequency/defaultLowFrequency, 1/float64(n-1))
	}
	freq := defaultLowFrequency
	for i := 0; i < n; i++ {
		eq.bands[i] = Band{Frequency: freq, Bandwidth: defaultBandwidth}
		freq *= ratio
	}
}
