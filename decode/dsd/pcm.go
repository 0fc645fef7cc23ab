package dsd

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/shaban/hifi/format"
)

const planeChunk = 4096

// PCMSource decimates a one-bit bitstream to interleaved float32 PCM.
// Each output sample integrates decim consecutive bits (a boxcar stage)
// followed by a two-tap smoother; enough to keep the ultrasonic noise
// shelf out of the audible band for playback purposes.
type PCMSource struct {
	pr          planeReader
	fmtF        format.Format
	total       int64
	decim       int
	bytesPerOut int

	planes   [][]byte
	planeLen int
	planePos int
	prev     []float32
	eof      bool
}

// NewPCMSource opens a DSF/DFF container and decimates it to targetRate.
// targetRate <= 0 selects the native rate divided by the DoP ratio.
func NewPCMSource(path string, targetRate float64) (*PCMSource, error) {
	pr, err := openContainer(path)
	if err != nil {
		return nil, err
	}

	rate := pr.rate()
	decim := format.DoPRatio
	if targetRate > 0 {
		if int(targetRate) == 0 || rate%int(targetRate) != 0 {
			pr.close()
			return nil, fmt.Errorf("target rate %v does not divide native rate %d", targetRate, rate)
		}
		decim = rate / int(targetRate)
	}
	if decim < 8 || decim%8 != 0 {
		pr.close()
		return nil, fmt.Errorf("decimation ratio %d not byte aligned", decim)
	}

	return &PCMSource{
		pr: pr,
		fmtF: format.Format{
			SampleRate: float64(rate / decim),
			Channels:   pr.channels(),
			Encoding:   format.PCMFloat32,
		},
		total:       pr.totalBytes() * 8 / int64(decim),
		decim:       decim,
		bytesPerOut: decim / 8,
		planes:      allocPlanes(pr.channels(), planeChunk),
		prev:        make([]float32, pr.channels()),
	}, nil
}

func (s *PCMSource) Format() format.Format { return s.fmtF }
func (s *PCMSource) TotalFrames() int64    { return s.total }
func (s *PCMSource) Close() error          { return s.pr.close() }

func (s *PCMSource) fill() error {
	n, err := s.pr.readPlanes(s.planes)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return err
	}
	s.planeLen = n
	s.planePos = 0
	return nil
}

func (s *PCMSource) ReadFloat32(dst []float32) (int, error) {
	channels := s.fmtF.Channels
	frames := len(dst) / channels
	written := 0

	for frame := 0; frame < frames; frame++ {
		if s.planeLen-s.planePos < s.bytesPerOut {
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
			pop := 0
			for b := 0; b < s.bytesPerOut; b++ {
				pop += bits.OnesCount8(s.planes[c][s.planePos+b])
			}
			v := float32(2*pop-s.decim) / float32(s.decim)
			dst[frame*channels+c] = (v + s.prev[c]) * 0.5
			s.prev[c] = v
		}
		s.planePos += s.bytesPerOut
		written += channels
	}

	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// SeekFrame repositions to the byte boundary containing the target frame.
// One-bit frame positions are approximate by nature; the controller uses
// time-based seeking for this family anyway.
func (s *PCMSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if err := s.pr.seekBytes(frame * int64(s.bytesPerOut)); err != nil {
		return err
	}
	s.planeLen, s.planePos = 0, 0
	s.eof = false
	for c := range s.prev {
		s.prev[c] = 0
	}
	return nil
}
