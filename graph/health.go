package graph

// Health is the engine-level graph health state. It replaces implicit
// one-shot failure flags: once a live mutation fails at the driver level
// the equalizer stays unavailable until an explicit engine reset, so a
// malformed driver state cannot cause a crash loop across track changes.
type Health int

const (
	// Healthy means equalizer mutations may be attempted.
	Healthy Health = iota

	// EqualizerUnavailable means a previous mutation failed; all further
	// equalizer attach/detach attempts are suppressed.
	EqualizerUnavailable
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case EqualizerUnavailable:
		return "equalizer-unavailable"
	default:
		return "unknown"
	}
}
