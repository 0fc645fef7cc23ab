// Package format describes the processing formats that flow between the
// decoder, the hardware session and the signal graph. A Format is a plain
// value; it carries no handle to any hardware resource.
package format

// Encoding identifies the sample encoding family of a stream.
type Encoding int

const (
	// PCMFloat32 is interleaved single-precision linear PCM in [-1, 1].
	// This is the only encoding the equalizer can process.
	PCMFloat32 Encoding = iota

	// DSD is a raw one-bit bitstream sent to hardware that decodes it natively.
	DSD

	// DoP is a one-bit bitstream framed inside 24-bit PCM carrier samples
	// at 1/16th of the native one-bit rate.
	DoP
)

func (e Encoding) String() string {
	switch e {
	case PCMFloat32:
		return "pcm-float32"
	case DSD:
		return "dsd"
	case DoP:
		return "dop"
	default:
		return "unknown"
	}
}

// OneBit reports whether the encoding belongs to the one-bit family.
// DoP counts: its payload is a one-bit stream even though the carrier is PCM.
func (e Encoding) OneBit() bool {
	return e == DSD || e == DoP
}

// Format describes a concrete stream format.
type Format struct {
	SampleRate float64
	Channels   int
	Encoding   Encoding
}

// EqualizerCompatible reports whether a stream of this format may be routed
// through the equalizer node. The equalizer requires full-range float PCM;
// one-bit payloads must never pass through gain stages.
func (f Format) EqualizerCompatible() bool {
	return f.Encoding == PCMFloat32 && f.SampleRate > 0 && f.Channels > 0
}

// RateTolerance is the window within which two sample rates are treated as
// identical for renegotiation purposes.
const RateTolerance = 1.0

// SameRate reports whether the two rates are within RateTolerance of each other.
func SameRate(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= RateTolerance
}

// Common one-bit native sample rates.
const (
	DSD64Rate  = 2822400
	DSD128Rate = 5644800
	DSD256Rate = 11289600
)

// DoPRatio is the fixed oversampling ratio between a one-bit stream and its
// PCM carrier: 16 one-bit samples ride in each 24-bit carrier sample.
const DoPRatio = 16

// DefaultDoPRate is used when neither the decoder nor the container reports
// a usable native rate. It corresponds to DSD64, the most common consumer
// one-bit rate family.
const DefaultDoPRate = 176400

// IsDSDRate reports whether rate is a known one-bit native rate.
func IsDSDRate(rate float64) bool {
	switch int(rate) {
	case DSD64Rate, DSD128Rate, DSD256Rate:
		return true
	}
	return false
}
