package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// reverse returns b with its bit order flipped. DSF stores one-bit data
// LSB-first on disk.
func reverse(b byte) byte {
	b = b>>4 | b<<4
	b = b>>2&0x33 | b<<2&0xCC
	b = b>>1&0x55 | b<<1&0xAA
	return b
}

// WriteDSF writes a minimal DSF container holding the given MSB-first
// one-bit payload, one slice per channel, and returns its path. All
// channel slices must be the same length; the payload is padded to the
// block size with silence.
func WriteDSF(t *testing.T, rate int, channels [][]byte, blockSize int) string {
	t.Helper()
	if blockSize <= 0 {
		blockSize = 4096
	}
	n := len(channels[0])
	blocks := (n + blockSize - 1) / blockSize

	var data []byte
	for b := 0; b < blocks; b++ {
		for _, ch := range channels {
			for i := 0; i < blockSize; i++ {
				idx := b*blockSize + i
				var v byte = 0x69 // DSD silence pattern
				if idx < n {
					v = ch[idx]
				}
				data = append(data, reverse(v))
			}
		}
	}

	buf := make([]byte, 0, 92+len(data))
	le := binary.LittleEndian

	// DSD chunk.
	buf = append(buf, "DSD "...)
	buf = le.AppendUint64(buf, 28)
	buf = le.AppendUint64(buf, uint64(92+len(data)))
	buf = le.AppendUint64(buf, 0) // no metadata

	// fmt chunk.
	buf = append(buf, "fmt "...)
	buf = le.AppendUint64(buf, 52)
	buf = le.AppendUint32(buf, 1) // format version
	buf = le.AppendUint32(buf, 0) // format id: raw
	buf = le.AppendUint32(buf, 0) // channel type
	buf = le.AppendUint32(buf, uint32(len(channels)))
	buf = le.AppendUint32(buf, uint32(rate))
	buf = le.AppendUint32(buf, 1) // bits per sample, LSB-first payload
	buf = le.AppendUint64(buf, uint64(n)*8)
	buf = le.AppendUint32(buf, uint32(blockSize))
	buf = le.AppendUint32(buf, 0) // reserved

	// data chunk.
	buf = append(buf, "data"...)
	buf = le.AppendUint64(buf, uint64(12+len(data)))
	buf = append(buf, data...)

	path := filepath.Join(t.TempDir(), "test.dsf")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write dsf: %v", err)
	}
	return path
}

// WriteDFF writes a minimal DSDIFF container holding the given MSB-first
// one-bit payload, one slice per channel, and returns its path.
func WriteDFF(t *testing.T, rate int, channels [][]byte) string {
	t.Helper()
	numChans := len(channels)
	n := len(channels[0])

	data := make([]byte, 0, n*numChans)
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			data = append(data, ch[i])
		}
	}

	be := binary.BigEndian
	chnlSize := 2 + 4*numChans
	propSize := 4 + (12 + 4) + (12 + chnlSize)

	var body []byte
	body = append(body, "PROP"...)
	body = be.AppendUint64(body, uint64(propSize))
	body = append(body, "SND "...)
	body = append(body, "FS  "...)
	body = be.AppendUint64(body, 4)
	body = be.AppendUint32(body, uint32(rate))
	body = append(body, "CHNL"...)
	body = be.AppendUint64(body, uint64(chnlSize))
	body = be.AppendUint16(body, uint16(numChans))
	for i := 0; i < numChans; i++ {
		body = append(body, "SLFT"...)
	}
	body = append(body, "DSD "...)
	body = be.AppendUint64(body, uint64(len(data)))
	body = append(body, data...)

	buf := make([]byte, 0, 12+len(body))
	buf = append(buf, "FRM8"...)
	buf = be.AppendUint64(buf, uint64(4+len(body)))
	buf = append(buf, "DSD "...)
	buf = append(buf, body...)

	path := filepath.Join(t.TempDir(), "test.dff")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write dff: %v", err)
	}
	return path
}
