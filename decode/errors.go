package decode

import "errors"

var (
	// ErrUnsupportedFormat means no decoder strategy matches the asset.
	// Non-retryable; the caller should fall back to a different renderer.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrUnsupportedVariant means the specialized one-bit decoder rejected
	// the container (e.g. an internal sample rate outside the known family).
	// The caller may still hand the file to native platform playback.
	ErrUnsupportedVariant = errors.New("unsupported one-bit variant")

	// ErrDecoderConstruction means a matching strategy failed to construct
	// after all transcode-path fallbacks were exhausted.
	ErrDecoderConstruction = errors.New("decoder construction failed")
)
