// Package testutil holds shared helpers for package tests: environment
// gates, a scriptable hardware session fake and a recording transport.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/shaban/hifi/session"
)

// SkipUnlessEnv skips the test unless the given env var equals the wanted value.
func SkipUnlessEnv(t *testing.T, key, want string) {
	t.Helper()
	if os.Getenv(key) != want {
		t.Skipf("skipped: set %s=%s to run", key, want)
	}
}

// IsCI reports whether running under common CI environments.
func IsCI() bool {
	if os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}
	return false
}

// FakeHardware is a scriptable session.Hardware. Rates listed in Accept
// are granted by SetPreferredSampleRate; everything else is refused. The
// zero value accepts every request.
type FakeHardware struct {
	Rate    float64
	Accept  []float64
	Buffers []float64 // accepted buffer durations in seconds; nil accepts all

	// FailActivation makes strict activation fail; FailRelaxed makes the
	// relaxed retry fail too.
	FailActivation bool
	FailRelaxed    bool

	Active      bool
	Category    session.Category
	RateAsks    []float64
	BufferAsks  []float64
	ActiveCalls int
}

func (f *FakeHardware) SampleRate() float64 {
	if f.Rate == 0 {
		return 44100
	}
	return f.Rate
}

func (f *FakeHardware) SetPreferredSampleRate(rate float64) error {
	f.RateAsks = append(f.RateAsks, rate)
	if f.Accept == nil {
		f.Rate = rate
		return nil
	}
	for _, a := range f.Accept {
		if a == rate {
			f.Rate = rate
			return nil
		}
	}
	return errRefused
}

func (f *FakeHardware) SetPreferredBufferDuration(d time.Duration) error {
	f.BufferAsks = append(f.BufferAsks, d.Seconds())
	if f.Buffers == nil {
		return nil
	}
	for _, b := range f.Buffers {
		if b == d.Seconds() {
			return nil
		}
	}
	return errRefused
}

func (f *FakeHardware) SetCategory(c session.Category) error {
	f.Category = c
	return nil
}

func (f *FakeHardware) SetActive(active bool, opts session.ActivationOptions) error {
	f.ActiveCalls++
	if active && f.FailActivation && (!opts.Relaxed || f.FailRelaxed) {
		return errRefused
	}
	f.Active = active
	return nil
}

var errRefused = refusedError{}

type refusedError struct{}

func (refusedError) Error() string { return "refused by hardware" }
