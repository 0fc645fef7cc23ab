// Package devices models the audio output routes the engine can render
// through and classifies whether the active route is a dedicated external
// DAC. Route descriptors come from the platform audio layer through the
// RouteProvider boundary; this package holds no hardware handles.
package devices

import "strings"

// PortType classifies the physical transport of an output route.
type PortType string

const (
	PortBuiltInSpeaker PortType = "builtin-speaker"
	PortHeadphones     PortType = "headphones"
	PortUSBAudio       PortType = "usb-audio"
	PortLineOut        PortType = "line-out"
	PortBluetooth      PortType = "bluetooth"
	PortAirPlay        PortType = "airplay"
	PortHDMI           PortType = "hdmi"
	PortOther          PortType = "other"
)

// BuiltIn reports whether the port is part of the host device itself.
func (p PortType) BuiltIn() bool {
	return p == PortBuiltInSpeaker
}

// Route describes one audio output route.
type Route struct {
	PortType PortType `json:"portType"`
	Name     string   `json:"name"`
	UID      string   `json:"uid"`
}

// Routes is a slice of Route with filter helpers.
type Routes []Route

// ByType returns only routes of the given port type.
func (routes Routes) ByType(t PortType) Routes {
	var out Routes
	for _, r := range routes {
		if r.PortType == t {
			out = append(out, r)
		}
	}
	return out
}

// External returns only routes that are not built into the host device.
func (routes Routes) External() Routes {
	var out Routes
	for _, r := range routes {
		if !r.PortType.BuiltIn() {
			out = append(out, r)
		}
	}
	return out
}

// Named returns only routes whose name contains substr, case-insensitive.
func (routes Routes) Named(substr string) Routes {
	var out Routes
	needle := strings.ToLower(substr)
	for _, r := range routes {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, r)
		}
	}
	return out
}

// RouteProvider returns the current output routes. Implemented by the
// platform audio layer; tests supply fakes.
type RouteProvider func() (Routes, error)
