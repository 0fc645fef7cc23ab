package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/shaban/hifi/format"
)

type vorbisSource struct {
	f   *os.File
	dec *oggvorbis.Reader
	fmt format.Format
}

func openVorbis(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("vorbis decoder: %w", err)
	}
	if dec.SampleRate() == 0 || dec.Channels() == 0 {
		f.Close()
		return nil, fmt.Errorf("vorbis reports zero format values: %q", path)
	}

	return &vorbisSource{
		f:   f,
		dec: dec,
		fmt: format.Format{
			SampleRate: float64(dec.SampleRate()),
			Channels:   dec.Channels(),
			Encoding:   format.PCMFloat32,
		},
	}, nil
}

func (s *vorbisSource) Format() format.Format { return s.fmt }
func (s *vorbisSource) TotalFrames() int64    { return s.dec.Length() }
func (s *vorbisSource) Close() error          { return s.f.Close() }

func (s *vorbisSource) ReadFloat32(dst []float32) (int, error) {
	n, err := s.dec.Read(dst)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return n, nil
}

func (s *vorbisSource) SeekFrame(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("negative frame %d", frame)
	}
	return s.dec.SetPosition(frame)
}
