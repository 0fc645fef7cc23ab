package dsd

import (
	"io"

	"github.com/shaban/hifi/format"
)

// RawSource delivers the one-bit bitstream unconverted for transports that
// decode it natively. Each float32 value carries 16 payload bits packed
// like a DoP frame without the marker byte; raw-capable transports unpack
// the bit pattern and must never treat the values as audio amplitudes.
type RawSource struct {
	pr    planeReader
	fmtF  format.Format
	total int64

	planes   [][]byte
	planeLen int
	planePos int
	eof      bool
}

// NewRawSource opens a DSF/DFF container for native passthrough.
func NewRawSource(path string) (*RawSource, error) {
	pr, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	return &RawSource{
		pr: pr,
		fmtF: format.Format{
			SampleRate: float64(pr.rate() / format.DoPRatio),
			Channels:   pr.channels(),
			Encoding:   format.DSD,
		},
		total:  pr.totalBytes() / 2,
		planes: allocPlanes(pr.channels(), planeChunk),
	}, nil
}

func (s *RawSource) Format() format.Format { return s.fmtF }
func (s *RawSource) TotalFrames() int64    { return s.total }
func (s *RawSource) Close() error          { return s.pr.close() }

func (s *RawSource) fill() error {
	n, err := s.pr.readPlanes(s.planes)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return err
	}
	s.planeLen = n &^ 1
	s.planePos = 0
	if s.planeLen == 0 {
		return io.EOF
	}
	return nil
}

func (s *RawSource) ReadFloat32(dst []float32) (int, error) {
	channels := s.fmtF.Channels
	frames := len(dst) / channels
	written := 0

	for frame := 0; frame < frames; frame++ {
		if s.planeLen-s.planePos < 2 {
			if s.eof {
				break
			}
			if err := s.fill(); err != nil {
				s.eof = true
				if written > 0 {
					return written, nil
				}
				return 0, err
			}
		}
		for c := 0; c < channels; c++ {
			word := int32(s.planes[c][s.planePos])<<8 | int32(s.planes[c][s.planePos+1])
			dst[frame*channels+c] = float32(word-32768) / 32768.0
		}
		s.planePos += 2
		written += channels
	}

	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

func (s *RawSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if err := s.pr.seekBytes(frame * 2); err != nil {
		return err
	}
	s.planeLen, s.planePos = 0, 0
	s.eof = false
	return nil
}
