package dsd

import "errors"

var (
	// ErrNotDSD means the file is neither a DSF nor a DFF container.
	ErrNotDSD = errors.New("not a dsd container")

	// ErrUnsupportedRate means the container reports a one-bit rate outside
	// the known family. Surfaced so the caller can pick a different
	// rendering path instead of failing fatally.
	ErrUnsupportedRate = errors.New("unsupported dsd sample rate")

	// ErrMalformedContainer means the chunk structure could not be parsed.
	ErrMalformedContainer = errors.New("malformed dsd container")
)

// IsContainerError reports whether err is a container-level rejection, as
// opposed to an I/O or construction failure. Container errors mean the
// asset itself cannot be decoded by this family and retrying with a
// different transcode path is pointless.
func IsContainerError(err error) bool {
	return errors.Is(err, ErrNotDSD) ||
		errors.Is(err, ErrUnsupportedRate) ||
		errors.Is(err, ErrMalformedContainer)
}
