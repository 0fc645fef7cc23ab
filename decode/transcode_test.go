package decode

import (
	"testing"

	"github.com/shaban/hifi/format"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		dacCapable bool
		wantDoP    bool
	}{
		{"auto without dac", Auto, false, false},
		{"auto with dac", Auto, true, true},
		{"force pcm ignores dac", ForcePCM, true, false},
		{"force dop without dac", ForceDoP, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.mode, tt.dacCapable, 0, 0)
			if d.UseDoP != tt.wantDoP {
				t.Errorf("UseDoP = %v, want %v", d.UseDoP, tt.wantDoP)
			}
			if d.Native {
				t.Error("Decide must never select native passthrough on its own")
			}
		})
	}
}

func TestDecideTargetRate(t *testing.T) {
	tests := []struct {
		name        string
		decoderRate float64
		nativeRate  float64
		want        float64
	}{
		{"decoder rate wins", 88200, format.DSD128Rate, 88200},
		{"native over ratio", 0, format.DSD64Rate, format.DSD64Rate / format.DoPRatio},
		{"dsd128 native", 0, format.DSD128Rate, format.DSD128Rate / format.DoPRatio},
		{"all unknown defaults", 0, 0, format.DefaultDoPRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(Auto, true, tt.decoderRate, tt.nativeRate)
			if d.TargetSampleRate != tt.want {
				t.Errorf("TargetSampleRate = %v, want %v", d.TargetSampleRate, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	if Auto.String() != "auto" || ForcePCM.String() != "pcm" || ForceDoP.String() != "dop" {
		t.Errorf("unexpected mode strings: %q %q %q", Auto, ForcePCM, ForceDoP)
	}
}
