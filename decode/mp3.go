package decode

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/shaban/hifi/format"
)

// go-mp3 always emits 16-bit little-endian stereo.
const mp3BytesPerFrame = 4

type mp3Source struct {
	f   *os.File
	dec *gomp3.Decoder
	fmt format.Format
	buf []byte
}

func openMP3(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mp3 decoder: %w", err)
	}
	if dec.SampleRate() == 0 {
		f.Close()
		return nil, fmt.Errorf("mp3 reports zero sample rate: %q", path)
	}

	return &mp3Source{
		f:   f,
		dec: dec,
		fmt: format.Format{
			SampleRate: float64(dec.SampleRate()),
			Channels:   2,
			Encoding:   format.PCMFloat32,
		},
	}, nil
}

func (s *mp3Source) Format() format.Format { return s.fmt }
func (s *mp3Source) Close() error          { return s.f.Close() }

func (s *mp3Source) TotalFrames() int64 {
	n := s.dec.Length()
	if n <= 0 {
		return 0
	}
	return n / mp3BytesPerFrame
}

func (s *mp3Source) ReadFloat32(dst []float32) (int, error) {
	want := len(dst) * 2
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, nil
}

// SeekFrame uses the decoder's byte-addressed seek over decoded output.
func (s *mp3Source) SeekFrame(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("negative frame %d", frame)
	}
	_, err := s.dec.Seek(frame*mp3BytesPerFrame, io.SeekStart)
	return err
}
