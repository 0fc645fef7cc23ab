package devices

import "testing"

func TestQualifiesAsDAC(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		want  bool
	}{
		{"usb interface", Route{PortType: PortUSBAudio, Name: "USB Audio Interface"}, true},
		{"usb unnamed", Route{PortType: PortUSBAudio}, true},
		{"line out", Route{PortType: PortLineOut, Name: "Line Out"}, true},

		{"builtin speakers", Route{PortType: PortBuiltInSpeaker, Name: "MacBook Pro Speakers"}, false},
		{"macbook headphones", Route{PortType: PortHeadphones, Name: "MacBook Pro Headphones"}, false},
		{"generic headphones", Route{PortType: PortHeadphones, Name: "Headphones"}, false},
		{"car headphone port", Route{PortType: PortHeadphones, Name: "Car Audio"}, false},

		{"topping brand", Route{PortType: PortHeadphones, Name: "Topping D90"}, true},
		{"chord mojo", Route{PortType: PortHeadphones, Name: "Chord Mojo 2"}, true},
		{"dac token", Route{PortType: PortHeadphones, Name: "Portable DAC X3"}, true},
		{"dsd token", Route{PortType: PortHeadphones, Name: "Hi-Res DSD Player"}, true},
		{"dac substring only", Route{PortType: PortHeadphones, Name: "Cascade Pro"}, false},
		{"headphone amp", Route{PortType: PortHeadphones, Name: "Reference Headphone Amplifier"}, true},
		{"deny beats brand", Route{PortType: PortHeadphones, Name: "Topping Internal Speaker"}, false},

		{"plain bluetooth", Route{PortType: PortBluetooth, Name: "WH-1000XM5"}, false},
		{"ldac bluetooth", Route{PortType: PortBluetooth, Name: "WH-1000XM5 (LDAC)"}, true},
		{"aptx hd bluetooth", Route{PortType: PortBluetooth, Name: "Receiver aptX HD"}, true},
		{"airplay", Route{PortType: PortAirPlay, Name: "Living Room"}, false},

		{"hdmi plain", Route{PortType: PortHDMI, Name: "LG TV"}, false},
		{"hdmi external dac", Route{PortType: PortHDMI, Name: "External DAC over HDMI"}, true},
		{"other plain", Route{PortType: PortOther, Name: "Something"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualifiesAsDAC(Routes{tt.route}); got != tt.want {
				t.Errorf("QualifiesAsDAC(%q/%s) = %v, want %v",
					tt.route.Name, tt.route.PortType, got, tt.want)
			}
		})
	}
}

func TestQualifiesAsDACAnyRoute(t *testing.T) {
	routes := Routes{
		{PortType: PortBuiltInSpeaker, Name: "MacBook Pro Speakers"},
		{PortType: PortUSBAudio, Name: "Topping D90"},
	}
	if !QualifiesAsDAC(routes) {
		t.Error("one qualifying route must qualify the set")
	}
	if QualifiesAsDAC(nil) {
		t.Error("empty route set must not qualify")
	}
}

func TestRoutesFilters(t *testing.T) {
	routes := Routes{
		{PortType: PortBuiltInSpeaker, Name: "MacBook Pro Speakers"},
		{PortType: PortUSBAudio, Name: "Topping D90", UID: "usb-1"},
		{PortType: PortHeadphones, Name: "Chord Mojo"},
	}

	if got := routes.ByType(PortUSBAudio); len(got) != 1 || got[0].UID != "usb-1" {
		t.Errorf("ByType = %+v, want the usb route", got)
	}
	if got := routes.External(); len(got) != 2 {
		t.Errorf("External = %d routes, want 2", len(got))
	}
	if got := routes.Named("mojo"); len(got) != 1 || got[0].Name != "Chord Mojo" {
		t.Errorf("Named = %+v, want the mojo route", got)
	}
}
