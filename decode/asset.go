package decode

import (
	"os"
	"time"

	"github.com/dhowden/tag"
)

// AssetRef identifies one audio asset for the lifetime of a playback
// session. It is populated once at load time from container metadata and
// falls back to decoder-reported values where the container is silent.
type AssetRef struct {
	Path   string
	Title  string
	Artist string
	Album  string

	// Reported values. Zero means "container did not say"; the decoder
	// fills these in after construction.
	Duration    time.Duration
	SampleRate  float64
	FrameLength int64
}

// ReadAsset opens path and extracts container tags into an AssetRef.
// Tag parsing failures are not fatal: the returned error lets the caller
// decide, but playback only needs the path.
func ReadAsset(path string) (*AssetRef, error) {
	ref := &AssetRef{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return ref, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ref, err
	}

	ref.Title = m.Title()
	ref.Artist = m.Artist()
	ref.Album = m.Album()
	return ref, nil
}

// fillFromSource backfills reported values the container left at zero.
// Frame length and sample rate both refer to the processing stream, so the
// derived duration stays consistent for DoP carriers too.
func (a *AssetRef) fillFromSource(src Source) {
	f := src.Format()
	if a.SampleRate == 0 {
		a.SampleRate = f.SampleRate
	}
	if a.FrameLength == 0 {
		a.FrameLength = src.TotalFrames()
	}
	if a.Duration == 0 && a.FrameLength > 0 && f.SampleRate > 0 {
		a.Duration = time.Duration(float64(a.FrameLength) / f.SampleRate * float64(time.Second))
	}
}
