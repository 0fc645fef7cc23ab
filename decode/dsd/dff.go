package dsd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DFF (DSDIFF) layout: big-endian chunk sizes, payload bytes interleaved
// one byte per channel, bits already MSB-first.

type dffStream struct {
	f          *os.File
	sampleRate int
	numChans   int
	dataStart  int64
	dataBytes  int64 // total payload, all channels
	readBuf    []byte
}

func openDFF(path string) (planeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var head [12]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotDSD, err)
	}
	if string(head[:4]) != "FRM8" || string(head[8:12]) != "DSD " {
		f.Close()
		return nil, fmt.Errorf("%w: missing FRM8/DSD header", ErrNotDSD)
	}

	s := &dffStream{f: f}
	if err := s.scanChunks(); err != nil {
		f.Close()
		return nil, err
	}
	if s.sampleRate == 0 || s.numChans == 0 || s.dataStart == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: missing FS/CHNL/DSD chunks", ErrMalformedContainer)
	}
	if err := validateRate(s.sampleRate); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(s.dataStart, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// scanChunks walks the top-level and PROP-nested chunks until the sound
// data chunk is found.
func (s *dffStream) scanChunks() error {
	for {
		id, size, err := readChunkHead(s.f)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedContainer, err)
		}

		switch id {
		case "PROP":
			if err := s.scanProp(size); err != nil {
				return err
			}
		case "DSD ":
			start, err := s.f.Seek(0, io.SeekCurrent)
			if err != nil {
				return err
			}
			s.dataStart = start
			s.dataBytes = size
			return nil
		default:
			if err := skipChunk(s.f, size); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedContainer, err)
			}
		}
	}
}

func (s *dffStream) scanProp(propSize int64) error {
	var kind [4]byte
	if _, err := io.ReadFull(s.f, kind[:]); err != nil {
		return fmt.Errorf("%w: truncated PROP", ErrMalformedContainer)
	}
	remaining := propSize - 4
	if string(kind[:]) != "SND " {
		return skipChunk(s.f, remaining)
	}

	for remaining > 0 {
		id, size, err := readChunkHead(s.f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedContainer, err)
		}
		remaining -= 12

		switch id {
		case "FS  ":
			var rate uint32
			if err := binary.Read(s.f, binary.BigEndian, &rate); err != nil {
				return fmt.Errorf("%w: truncated FS", ErrMalformedContainer)
			}
			s.sampleRate = int(rate)
		case "CHNL":
			var n uint16
			if err := binary.Read(s.f, binary.BigEndian, &n); err != nil {
				return fmt.Errorf("%w: truncated CHNL", ErrMalformedContainer)
			}
			s.numChans = int(n)
			if err := skipChunk(s.f, size-2); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedContainer, err)
			}
		default:
			if err := skipChunk(s.f, size); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedContainer, err)
			}
		}
		remaining -= padded(size)
	}
	return nil
}

func readChunkHead(r io.Reader) (string, int64, error) {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return "", 0, err
	}
	return string(head[:4]), int64(binary.BigEndian.Uint64(head[4:12])), nil
}

func skipChunk(f *os.File, size int64) error {
	_, err := f.Seek(padded(size), io.SeekCurrent)
	return err
}

// padded rounds a DSDIFF chunk size up to even, per the container spec.
func padded(size int64) int64 {
	if size%2 != 0 {
		return size + 1
	}
	return size
}

func (s *dffStream) rate() int     { return s.sampleRate }
func (s *dffStream) channels() int { return s.numChans }
func (s *dffStream) close() error  { return s.f.Close() }

func (s *dffStream) totalBytes() int64 {
	return s.dataBytes / int64(s.numChans)
}

func (s *dffStream) readPlanes(planes [][]byte) (int, error) {
	if len(planes) < s.numChans {
		return 0, fmt.Errorf("need %d planes, got %d", s.numChans, len(planes))
	}
	want := len(planes[0])
	need := want * s.numChans
	if cap(s.readBuf) < need {
		s.readBuf = make([]byte, need)
	}
	buf := s.readBuf[:need]

	n, err := io.ReadFull(s.f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	frames := n / s.numChans
	if frames == 0 {
		return 0, io.EOF
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < s.numChans; c++ {
			planes[c][i] = buf[i*s.numChans+c]
		}
	}
	return frames, nil
}

func (s *dffStream) seekBytes(off int64) error {
	if off < 0 {
		off = 0
	}
	_, err := s.f.Seek(s.dataStart+off*int64(s.numChans), io.SeekStart)
	return err
}
