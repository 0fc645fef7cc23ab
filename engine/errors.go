package engine

import "errors"

var (
	// ErrNoTrack is returned by operations that need a loaded track.
	ErrNoTrack = errors.New("engine: no track loaded")

	// ErrInvalidTransition is returned when a control call is not legal
	// in the current playback state.
	ErrInvalidTransition = errors.New("engine: invalid state transition")

	// ErrClosed is returned after the engine has been closed.
	ErrClosed = errors.New("engine: closed")

	// ErrLoadSuperseded is returned when a newer load request replaced
	// this one before it finished.
	ErrLoadSuperseded = errors.New("engine: load superseded")
)

// FailureReason is the human-readable category attached to the Failed
// state. It maps internal errors to something a UI can display directly.
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonUnsupportedFormat   FailureReason = "unsupported format"
	ReasonHardwareUnavailable FailureReason = "audio hardware unavailable"
	ReasonUnknown             FailureReason = "playback failed"
)

// classifyFailure maps a load or start error to a display reason.
func classifyFailure(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case isUnsupportedFormat(err):
		return ReasonUnsupportedFormat
	case isHardwareFailure(err):
		return ReasonHardwareUnavailable
	default:
		return ReasonUnknown
	}
}
