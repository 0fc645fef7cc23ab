package decode

import "github.com/shaban/hifi/format"

// Mode is the user's one-bit transcode preference.
type Mode int

const (
	// Auto lets the device capability probe decide.
	Auto Mode = iota

	// ForcePCM always converts the one-bit stream to linear PCM.
	ForcePCM

	// ForceDoP always frames the one-bit stream over PCM carriers.
	ForceDoP
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case ForcePCM:
		return "pcm"
	case ForceDoP:
		return "dop"
	default:
		return "unknown"
	}
}

// Decision is the derived transcode choice for one playback session.
// It is recomputed on every load and never persisted.
type Decision struct {
	// UseDoP selects DoP framing over PCM conversion.
	UseDoP bool

	// Native selects raw one-bit passthrough; only set by callers that
	// have verified the output route accepts an unframed bitstream.
	Native bool

	// TargetSampleRate is the carrier rate the session should negotiate.
	TargetSampleRate float64
}

// Decide computes the transcode decision for a one-bit asset.
//
// decoderRate is the rate the constructed decoder reports (0 when it cannot),
// nativeRate is the container's one-bit rate (0 when unknown), and dacCapable
// is the capability probe result. Under Auto, DoP is chosen only when a
// qualifying external device was detected; false positives change the
// encoding on the wire and are audible, so the probe is conservative.
func Decide(mode Mode, dacCapable bool, decoderRate, nativeRate float64) Decision {
	d := Decision{}
	switch mode {
	case ForcePCM:
		d.UseDoP = false
	case ForceDoP:
		d.UseDoP = true
	default:
		d.UseDoP = dacCapable
	}

	d.TargetSampleRate = dopTargetRate(decoderRate, nativeRate)
	return d
}

// dopTargetRate derives the PCM carrier rate. The decoder's own report wins;
// otherwise the carrier runs at native/16, and when even the native rate is
// unknown the DSD64 carrier rate is assumed.
func dopTargetRate(decoderRate, nativeRate float64) float64 {
	if decoderRate > 0 {
		return decoderRate
	}
	if nativeRate > 0 {
		return nativeRate / format.DoPRatio
	}
	return format.DefaultDoPRate
}
