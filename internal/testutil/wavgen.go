package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteWAV emits a canonical 16-bit PCM RIFF file with interleaved
// samples and returns its path.
func WriteWAV(t *testing.T, rate, channels int, samples []int16) string {
	t.Helper()
	le := binary.LittleEndian
	dataSize := len(samples) * 2

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, 1) // PCM
	buf = le.AppendUint16(buf, uint16(channels))
	buf = le.AppendUint32(buf, uint32(rate))
	buf = le.AppendUint32(buf, uint32(rate*channels*2))
	buf = le.AppendUint16(buf, uint16(channels*2))
	buf = le.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, uint32(dataSize))
	for _, s := range samples {
		buf = le.AppendUint16(buf, uint16(s))
	}

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}
