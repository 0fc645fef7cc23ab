package dsd

import (
	"io"

	"github.com/shaban/hifi/format"
)

// DoP marker bytes, alternating per carrier frame. The marker occupies the
// top byte of each 24-bit carrier sample; receivers lock onto the 0x05/0xFA
// alternation to detect the embedded one-bit stream.
const (
	dopMarkerA = 0x05
	dopMarkerB = 0xFA
)

// DoPSource frames a one-bit bitstream inside 24-bit PCM carrier samples
// at 1/16th of the native rate. The carrier values are bit-exact; any gain
// stage between this source and the output destroys the stream.
type DoPSource struct {
	pr    planeReader
	fmtF  format.Format
	total int64

	planes   [][]byte
	planeLen int
	planePos int
	phase    int64
	eof      bool
}

// NewDoPSource opens a DSF/DFF container for DoP delivery. The carrier
// rate is fixed by the container's native rate (DSD64 frames at 176400 Hz,
// DSD128 at 352800 Hz, and so on); callers negotiate the session against
// the rate this source reports rather than the other way around.
func NewDoPSource(path string) (*DoPSource, error) {
	pr, err := openContainer(path)
	if err != nil {
		return nil, err
	}

	carrier := pr.rate() / format.DoPRatio
	return &DoPSource{
		pr: pr,
		fmtF: format.Format{
			SampleRate: float64(carrier),
			Channels:   pr.channels(),
			Encoding:   format.DoP,
		},
		total:  pr.totalBytes() / 2,
		planes: allocPlanes(pr.channels(), planeChunk),
	}, nil
}

func (s *DoPSource) Format() format.Format { return s.fmtF }
func (s *DoPSource) TotalFrames() int64    { return s.total }
func (s *DoPSource) Close() error          { return s.pr.close() }

func (s *DoPSource) fill() error {
	n, err := s.pr.readPlanes(s.planes)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return err
	}
	// A carrier frame needs two payload bytes; drop a trailing odd byte.
	s.planeLen = n &^ 1
	s.planePos = 0
	if s.planeLen == 0 {
		return io.EOF
	}
	return nil
}

func (s *DoPSource) ReadFloat32(dst []float32) (int, error) {
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
		marker := int32(dopMarkerA)
		if s.phase&1 == 1 {
			marker = dopMarkerB
		}
		for c := 0; c < channels; c++ {
			word := marker<<16 |
				int32(s.planes[c][s.planePos])<<8 |
				int32(s.planes[c][s.planePos+1])
			if word&0x800000 != 0 {
				word -= 1 << 24
			}
			// 24-bit ints are exactly representable in float32.
			dst[frame*channels+c] = float32(word) / float32(1<<23)
		}
		s.planePos += 2
		s.phase++
		written += channels
	}

	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// SeekFrame repositions to a carrier frame and realigns the marker phase.
func (s *DoPSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if err := s.pr.seekBytes(frame * 2); err != nil {
		return err
	}
	s.planeLen, s.planePos = 0, 0
	s.phase = frame
	s.eof = false
	return nil
}
