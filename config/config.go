// Package config loads and validates user playback preferences: the
// one-bit transcode mode and the equalizer settings. The engine reads
// preferences at load time and again on an explicit settings-changed
// notification; it never writes them back.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaban/hifi/graph"
)

// Preferences is the user-facing playback configuration.
type Preferences struct {
	// Transcode selects the one-bit delivery mode: "auto", "pcm" or "dop".
	Transcode string `yaml:"transcode"`

	// Equalizer holds the equalizer enable flag and band table.
	Equalizer EqualizerPrefs `yaml:"equalizer"`

	// BufferDuration optionally overrides the negotiated buffer baseline.
	BufferDuration time.Duration `yaml:"buffer_duration"`
}

// EqualizerPrefs configures the equalizer node.
type EqualizerPrefs struct {
	Enabled    bool                `yaml:"enabled"`
	GlobalGain float64             `yaml:"global_gain"`
	Bands      []graph.BandSetting `yaml:"bands"`
}

// Default returns the preferences used when no file exists.
func Default() *Preferences {
	return &Preferences{
		Transcode: "auto",
		Equalizer: EqualizerPrefs{Enabled: true},
	}
}

// Load reads the YAML preferences file at path and returns a validated
// [Preferences]. A missing file yields the defaults, not an error.
func Load(path string) (*Preferences, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader decodes YAML preferences from r and validates the result.
// Useful in tests where preferences are built from string literals.
func LoadFromReader(r io.Reader) (*Preferences, error) {
	p := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that p contains a coherent set of values. It returns a
// joined error listing every failure found.
func Validate(p *Preferences) error {
	var errs []error

	switch p.Transcode {
	case "auto", "pcm", "dop":
	default:
		errs = append(errs, fmt.Errorf("config: unknown transcode mode %q (want auto, pcm or dop)", p.Transcode))
	}

	for i, b := range p.Equalizer.Bands {
		if b.Frequency <= 0 {
			errs = append(errs, fmt.Errorf("config: band %d: frequency must be positive, got %v", i, b.Frequency))
		}
		if b.Gain < -24 || b.Gain > 24 {
			errs = append(errs, fmt.Errorf("config: band %d: gain %v dB outside [-24, 24]", i, b.Gain))
		}
	}

	if p.BufferDuration < 0 {
		errs = append(errs, fmt.Errorf("config: buffer_duration must not be negative"))
	}

	return errors.Join(errs...)
}

// Store holds the live preferences and fans out settings-changed
// notifications to subscribers.
type Store struct {
	mu    sync.RWMutex
	prefs *Preferences
	subs  []func(*Preferences)
}

// NewStore creates a store seeded with p; nil seeds the defaults.
func NewStore(p *Preferences) *Store {
	if p == nil {
		p = Default()
	}
	return &Store{prefs: p}
}

// Current returns the active preferences.
func (s *Store) Current() *Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update validates and installs p, then notifies subscribers.
func (s *Store) Update(p *Preferences) error {
	if err := Validate(p); err != nil {
		return err
	}
	s.mu.Lock()
	s.prefs = p
	subs := make([]func(*Preferences), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return nil
}

// Subscribe registers fn to run on every settings change.
func (s *Store) Subscribe(fn func(*Preferences)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}
