// Package decode selects and constructs decoding strategies for audio
// assets. Extension-based resolution dispatches linear codecs to the
// general PCM path and one-bit codecs to the specialized DSD path; the
// transcode policy then decides how a one-bit stream reaches hardware.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shaban/hifi/decode/dsd"
	"github.com/shaban/hifi/format"
)

// Source is a decoded audio stream. Implementations are not safe for
// concurrent use; the engine serializes all access.
type Source interface {
	// Format returns the processing format of the decoded stream.
	Format() format.Format

	// TotalFrames returns the total frame count, or 0 when unknown.
	TotalFrames() int64

	// ReadFloat32 fills dst with interleaved samples and returns the number
	// of values written. n == 0 with err == io.EOF means the stream ended.
	ReadFloat32(dst []float32) (n int, err error)

	// SeekFrame repositions the stream to the given frame index.
	SeekFrame(frame int64) error

	// Close releases any resources held by the source.
	Close() error
}

// Kind is the closed set of decoding strategy variants.
type Kind int

const (
	// LinearPCM decodes a conventional PCM-derived container.
	LinearPCM Kind = iota

	// OneBitNative passes the raw one-bit bitstream through unconverted.
	OneBitNative

	// OneBitToPCM converts the one-bit bitstream to linear PCM.
	OneBitToPCM

	// OneBitToDoP frames the one-bit bitstream inside PCM carrier samples.
	OneBitToDoP
)

func (k Kind) String() string {
	switch k {
	case LinearPCM:
		return "linear-pcm"
	case OneBitNative:
		return "one-bit-native"
	case OneBitToPCM:
		return "one-bit-to-pcm"
	case OneBitToDoP:
		return "one-bit-to-dop"
	default:
		return "unknown"
	}
}

// OneBit reports whether the variant decodes the one-bit codec family.
func (k Kind) OneBit() bool { return k != LinearPCM }

// Handle owns one constructed decoding strategy. It is created by Open and
// destroyed by Close; the playback controller holds exactly one at a time.
type Handle struct {
	kind  Kind
	src   Source
	asset *AssetRef
}

// Kind returns the strategy variant backing this handle.
func (h *Handle) Kind() Kind { return h.kind }

// Asset returns the asset reference this handle decodes.
func (h *Handle) Asset() *AssetRef { return h.asset }

// Format returns the processing format the handle produces.
func (h *Handle) Format() format.Format { return h.src.Format() }

// SampleRate returns the processing sample rate in Hz.
func (h *Handle) SampleRate() float64 { return h.src.Format().SampleRate }

// Channels returns the channel count of the decoded stream.
func (h *Handle) Channels() int { return h.src.Format().Channels }

// TotalFrames returns the total frame count, or 0 when unknown.
func (h *Handle) TotalFrames() int64 { return h.src.TotalFrames() }

// Produce fills dst with interleaved samples from the decoder.
func (h *Handle) Produce(dst []float32) (int, error) {
	return h.src.ReadFloat32(dst)
}

// SeekFrame repositions the decoder to the given frame index.
func (h *Handle) SeekFrame(frame int64) error { return h.src.SeekFrame(frame) }

// Close releases the underlying decoder.
func (h *Handle) Close() error { return h.src.Close() }

// Strategy is the resolver's extension-level dispatch result.
type Strategy int

const (
	// StrategyLinear routes through the general PCM decoder path.
	StrategyLinear Strategy = iota

	// StrategyOneBit routes through the specialized one-bit decoder path.
	StrategyOneBit
)

var linearExtensions = map[string]bool{
	".wav":  true,
	".wave": true,
	".aiff": true,
	".aif":  true,
	".mp3":  true,
	".ogg":  true,
	".oga":  true,
}

var oneBitExtensions = map[string]bool{
	".dsf": true,
	".dff": true,
}

// Resolve maps an asset path to a decoding strategy by extension.
// Unknown extensions yield ErrUnsupportedFormat so the caller can fall
// back to an entirely different rendering path.
func Resolve(path string) (Strategy, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case linearExtensions[ext]:
		return StrategyLinear, nil
	case oneBitExtensions[ext]:
		return StrategyOneBit, nil
	default:
		return 0, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
}

// SupportedExtensions returns all extensions the resolver accepts,
// lowercase with leading dot, in no particular order.
func SupportedExtensions() []string {
	out := make([]string, 0, len(linearExtensions)+len(oneBitExtensions))
	for ext := range linearExtensions {
		out = append(out, ext)
	}
	for ext := range oneBitExtensions {
		out = append(out, ext)
	}
	return out
}

// Open resolves path and constructs a decoder handle for it. For one-bit
// assets the transcode decision picks the initial path; if construction of
// that path fails the opposite path is attempted once before the error is
// surfaced (wrapped in ErrDecoderConstruction).
func Open(path string, decision Decision) (*Handle, error) {
	strategy, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	asset, err := ReadAsset(path)
	if err != nil {
		// Metadata is best-effort; a bare ref still identifies the asset.
		asset = &AssetRef{Path: path}
	}

	switch strategy {
	case StrategyLinear:
		src, err := openLinear(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecoderConstruction, err)
		}
		asset.fillFromSource(src)
		return &Handle{kind: LinearPCM, src: src, asset: asset}, nil

	case StrategyOneBit:
		return openOneBit(path, asset, decision)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

func openLinear(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return openWAV(path)
	case ".aiff", ".aif":
		return openAIFF(path)
	case ".mp3":
		return openMP3(path)
	case ".ogg", ".oga":
		return openVorbis(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// openOneBit constructs the chosen one-bit path, falling back to the
// opposite path once. Container-level failures (not a DSD file, internal
// rate outside the known family) surface as ErrUnsupportedVariant so the
// caller can hand the asset to a platform player instead of crashing.
func openOneBit(path string, asset *AssetRef, decision Decision) (*Handle, error) {
	if decision.Native {
		src, err := dsd.NewRawSource(path)
		if err != nil {
			return nil, oneBitConstructionError(err)
		}
		asset.fillFromSource(src)
		return &Handle{kind: OneBitNative, src: src, asset: asset}, nil
	}

	kind := OneBitToPCM
	if decision.UseDoP {
		kind = OneBitToDoP
	}

	src, err := openOneBitVariant(path, kind, decision.TargetSampleRate)
	if err != nil {
		if dsd.IsContainerError(err) {
			return nil, oneBitConstructionError(err)
		}
		// Attempt the opposite transcode path exactly once.
		opposite := OneBitToDoP
		if kind == OneBitToDoP {
			opposite = OneBitToPCM
		}
		src, err = openOneBitVariant(path, opposite, decision.TargetSampleRate)
		if err != nil {
			return nil, oneBitConstructionError(err)
		}
		kind = opposite
	}

	asset.fillFromSource(src)
	return &Handle{kind: kind, src: src, asset: asset}, nil
}

// openOneBitVariant constructs one transcode path. The decision's target
// rate is a pre-parse negotiation hint: the DoP carrier is fixed by the
// container's native rate, so only the PCM path consumes it.
func openOneBitVariant(path string, kind Kind, targetRate float64) (Source, error) {
	switch kind {
	case OneBitToDoP:
		return dsd.NewDoPSource(path)
	default:
		return dsd.NewPCMSource(path, targetRate)
	}
}

func oneBitConstructionError(err error) error {
	if dsd.IsContainerError(err) {
		return fmt.Errorf("%w: %v", ErrUnsupportedVariant, err)
	}
	return fmt.Errorf("%w: %v", ErrDecoderConstruction, err)
}
