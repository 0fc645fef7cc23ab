package format

import "testing"

func TestEncodingOneBit(t *testing.T) {
	if PCMFloat32.OneBit() {
		t.Error("PCMFloat32 must not be one-bit")
	}
	if !DSD.OneBit() {
		t.Error("DSD must be one-bit")
	}
	if !DoP.OneBit() {
		t.Error("DoP payload is one-bit even though the carrier is PCM")
	}
}

func TestEqualizerCompatible(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		want bool
	}{
		{"float pcm", Format{SampleRate: 44100, Channels: 2, Encoding: PCMFloat32}, true},
		{"dop carrier", Format{SampleRate: 176400, Channels: 2, Encoding: DoP}, false},
		{"raw dsd", Format{SampleRate: 2822400, Channels: 2, Encoding: DSD}, false},
		{"zero rate", Format{Channels: 2, Encoding: PCMFloat32}, false},
		{"zero channels", Format{SampleRate: 44100, Encoding: PCMFloat32}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.EqualizerCompatible(); got != tt.want {
				t.Errorf("EqualizerCompatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameRate(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{44100, 44100, true},
		{44100, 44100.5, true},
		{44100, 44101, true}, // exactly at tolerance
		{44100, 44101.5, false},
		{48000, 44100, false},
		{0, 0, true},
	}
	for _, tt := range tests {
		if got := SameRate(tt.a, tt.b); got != tt.want {
			t.Errorf("SameRate(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsDSDRate(t *testing.T) {
	for _, rate := range []float64{DSD64Rate, DSD128Rate, DSD256Rate} {
		if !IsDSDRate(rate) {
			t.Errorf("IsDSDRate(%v) = false, want true", rate)
		}
	}
	for _, rate := range []float64{0, 44100, 96000, 2822401} {
		if IsDSDRate(rate) {
			t.Errorf("IsDSDRate(%v) = true, want false", rate)
		}
	}
}

func TestDoPRateRelation(t *testing.T) {
	if DSD64Rate/DoPRatio != DefaultDoPRate {
		t.Errorf("DSD64 carrier rate = %d, want %d", DSD64Rate/DoPRatio, DefaultDoPRate)
	}
}
