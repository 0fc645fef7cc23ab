// Package dsd decodes the one-bit codec family: DSF and DFF containers,
// with three delivery paths. NewPCMSource decimates the bitstream to
// linear PCM, NewDoPSource frames it inside 24-bit PCM carrier samples,
// and NewRawSource packs it unconverted for raw-capable transports.
//
// The container readers normalize both layouts to MSB-first per-channel
// byte planes; everything above works on planes only.
package dsd

import (
	"fmt"

	"github.com/shaban/hifi/format"
)

// plane reader abstraction shared by both containers.
type planeReader interface {
	rate() int
	channels() int
	// totalBytes is the payload length per channel.
	totalBytes() int64
	// readPlanes fills up to len(planes[c]) bytes per channel, MSB-first.
	// All channels advance in lockstep; returns bytes per channel.
	readPlanes(planes [][]byte) (int, error)
	// seekBytes repositions every channel to the given byte offset.
	seekBytes(off int64) error
	close() error
}

// openContainer dispatches on the container magic, not the extension, so a
// misnamed file still decodes or fails with a container-class error.
func openContainer(path string) (planeReader, error) {
	pr, err := openDSF(path)
	if err == nil {
		return pr, nil
	}
	if !isNotDSF(err) {
		return nil, err
	}
	return openDFF(path)
}

func validateRate(rate int) error {
	if !format.IsDSDRate(float64(rate)) {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, rate)
	}
	return nil
}

// allocPlanes returns per-channel scratch planes of n bytes.
func allocPlanes(channels, n int) [][]byte {
	planes := make([][]byte, channels)
	for c := range planes {
		planes[c] = make([]byte, n)
	}
	return planes
}
