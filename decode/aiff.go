package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/shaban/hifi/format"
)

type aiffSource struct {
	f      *os.File
	dec    *aiff.Decoder
	fmt    format.Format
	total  int64
	scale  float32
	intBuf *audio.IntBuffer
}

func openAIFF(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid aiff file: %q", path)
	}
	if dec.BitDepth == 0 || dec.NumChans == 0 || dec.SampleRate == 0 {
		f.Close()
		return nil, fmt.Errorf("aiff header reports zero format values: %q", path)
	}

	dur, err := dec.Duration()
	if err != nil {
		dur = 0
	}

	s := &aiffSource{
		f:   f,
		dec: dec,
		fmt: format.Format{
			SampleRate: float64(dec.SampleRate),
			Channels:   int(dec.NumChans),
			Encoding:   format.PCMFloat32,
		},
		scale: 1.0 / float32(int64(1)<<(dec.BitDepth-1)),
	}
	s.total = int64(dur.Seconds() * float64(dec.SampleRate))
	return s, nil
}

func (s *aiffSource) Format() format.Format { return s.fmt }
func (s *aiffSource) TotalFrames() int64    { return s.total }
func (s *aiffSource) Close() error          { return s.f.Close() }

func (s *aiffSource) ReadFloat32(dst []float32) (int, error) {
	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &audio.IntBuffer{Data: make([]int, len(dst))}
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) * s.scale
	}
	return n, nil
}

func (s *aiffSource) SeekFrame(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("negative frame %d", frame)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.dec = aiff.NewDecoder(s.f)
	if !s.dec.IsValidFile() {
		return fmt.Errorf("aiff rewind failed")
	}
	return discardFrames(s, frame, s.fmt.Channels)
}
