package dsd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DSF layout: little-endian chunk sizes, per-channel blocks of
// blockSize bytes interleaved block-by-block, bits stored LSB-first
// when bitsPerSample == 1.

type dsfStream struct {
	f          *os.File
	sampleRate int
	numChans   int
	sampleBits int64 // per channel
	blockSize  int
	dataStart  int64
	lsbFirst   bool

	// current block group, one plane per channel
	block    [][]byte
	blockLen int
	blockPos int
}

// bitReverse maps a byte to its bit-reversed value; DSF payloads are
// LSB-first and everything downstream expects MSB-first.
var bitReverse [256]byte

func init() {
	for i := 0; i < 256; i++ {
		b := byte(i)
		b = b>>4 | b<<4
		b = b>>2&0x33 | b<<2&0xCC
		b = b>>1&0x55 | b<<1&0xAA
		bitReverse[i] = b
	}
}

type notDSFError struct{ err error }

func (e *notDSFError) Error() string { return e.err.Error() }
func (e *notDSFError) Unwrap() error { return e.err }

func isNotDSF(err error) bool {
	_, ok := err.(*notDSFError)
	return ok
}

func openDSF(path string) (planeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		f.Close()
		return nil, &notDSFError{fmt.Errorf("%w: %v", ErrNotDSD, err)}
	}
	if string(magic[:]) != "DSD " {
		f.Close()
		return nil, &notDSFError{fmt.Errorf("%w: missing DSD chunk", ErrNotDSD)}
	}

	// DSD chunk: chunk size, file size, metadata pointer.
	var head [24]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: truncated DSD chunk", ErrMalformedContainer)
	}

	// fmt chunk.
	var fmtHead [12]byte
	if _, err := io.ReadFull(f, fmtHead[:]); err != nil || string(fmtHead[:4]) != "fmt " {
		f.Close()
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrMalformedContainer)
	}
	fmtSize := binary.LittleEndian.Uint64(fmtHead[4:12])
	if fmtSize < 52 {
		f.Close()
		return nil, fmt.Errorf("%w: fmt chunk too small", ErrMalformedContainer)
	}
	fmtBody := make([]byte, fmtSize-12)
	if _, err := io.ReadFull(f, fmtBody); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: truncated fmt chunk", ErrMalformedContainer)
	}

	sampleRate := int(binary.LittleEndian.Uint32(fmtBody[16:20]))
	bitsPerSample := binary.LittleEndian.Uint32(fmtBody[20:24])
	numChans := int(binary.LittleEndian.Uint32(fmtBody[12:16]))
	sampleCount := int64(binary.LittleEndian.Uint64(fmtBody[24:32]))
	blockSize := int(binary.LittleEndian.Uint32(fmtBody[32:36]))

	if numChans <= 0 || blockSize <= 0 || sampleCount <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: zero channel/block/sample values", ErrMalformedContainer)
	}
	if err := validateRate(sampleRate); err != nil {
		f.Close()
		return nil, err
	}

	// data chunk header.
	var dataHead [12]byte
	if _, err := io.ReadFull(f, dataHead[:]); err != nil || string(dataHead[:4]) != "data" {
		f.Close()
		return nil, fmt.Errorf("%w: missing data chunk", ErrMalformedContainer)
	}
	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &dsfStream{
		f:          f,
		sampleRate: sampleRate,
		numChans:   numChans,
		sampleBits: sampleCount,
		blockSize:  blockSize,
		dataStart:  dataStart,
		lsbFirst:   bitsPerSample == 1,
		block:      allocPlanes(numChans, blockSize),
	}, nil
}

func (s *dsfStream) rate() int         { return s.sampleRate }
func (s *dsfStream) channels() int     { return s.numChans }
func (s *dsfStream) totalBytes() int64 { return s.sampleBits / 8 }
func (s *dsfStream) close() error      { return s.f.Close() }

// loadBlockGroup reads one blockSize-sized block per channel.
func (s *dsfStream) loadBlockGroup() error {
	for c := 0; c < s.numChans; c++ {
		n, err := io.ReadFull(s.f, s.block[c])
		if err == io.ErrUnexpectedEOF || (err == io.EOF && c > 0) {
			return fmt.Errorf("%w: ragged block group", ErrMalformedContainer)
		}
		if err != nil {
			return err
		}
		if s.lsbFirst {
			for i := 0; i < n; i++ {
				s.block[c][i] = bitReverse[s.block[c][i]]
			}
		}
	}
	s.blockLen = s.blockSize
	s.blockPos = 0
	return nil
}

func (s *dsfStream) readPlanes(planes [][]byte) (int, error) {
	if len(planes) < s.numChans {
		return 0, fmt.Errorf("need %d planes, got %d", s.numChans, len(planes))
	}
	want := len(planes[0])
	done := 0
	for done < want {
		if s.blockPos >= s.blockLen {
			if err := s.loadBlockGroup(); err != nil {
				if done > 0 && err == io.EOF {
					return done, nil
				}
				return done, err
			}
		}
		n := s.blockLen - s.blockPos
		if n > want-done {
			n = want - done
		}
		for c := 0; c < s.numChans; c++ {
			copy(planes[c][done:done+n], s.block[c][s.blockPos:s.blockPos+n])
		}
		s.blockPos += n
		done += n
	}
	return done, nil
}

// seekBytes positions all channels at off, re-reading the containing
// block group and discarding the intra-block remainder.
func (s *dsfStream) seekBytes(off int64) error {
	if off < 0 {
		off = 0
	}
	blockIdx := off / int64(s.blockSize)
	within := int(off % int64(s.blockSize))

	pos := s.dataStart + blockIdx*int64(s.numChans)*int64(s.blockSize)
	if _, err := s.f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	s.blockLen, s.blockPos = 0, 0
	if within > 0 {
		if err := s.loadBlockGroup(); err != nil {
			return err
		}
		s.blockPos = within
	}
	return nil
}
